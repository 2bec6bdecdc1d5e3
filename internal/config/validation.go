// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks range and cross-field invariants the way the teacher's
// config package validates schema, returning the first violation found.
func Validate(cfg Config) error {
	if cfg.HoldTTL <= 0 {
		return fmt.Errorf("HoldTTL must be positive, got %s", cfg.HoldTTL)
	}
	if cfg.ConfirmTokenTTL < cfg.HoldTTL+5*time.Minute {
		return fmt.Errorf("ConfirmTokenTTL (%s) must be at least HoldTTL+5m (%s)", cfg.ConfirmTokenTTL, cfg.HoldTTL+5*time.Minute)
	}
	if cfg.TickerInterval <= 0 {
		return fmt.Errorf("TickerInterval must be positive, got %s", cfg.TickerInterval)
	}
	if cfg.TickerPageSize < 1 || cfg.TickerPageSize > 1000 {
		return fmt.Errorf("TickerPageSize must be in [1, 1000], got %d", cfg.TickerPageSize)
	}
	if cfg.CascadeFanoutK < 1 || cfg.CascadeFanoutK > 50 {
		return fmt.Errorf("CascadeFanoutK must be in [1, 50], got %d", cfg.CascadeFanoutK)
	}
	if cfg.MaxActiveEntriesPerPhone < 1 || cfg.MaxActiveEntriesPerPhone > 20 {
		return fmt.Errorf("MaxActiveEntriesPerPhone must be in [1, 20], got %d", cfg.MaxActiveEntriesPerPhone)
	}
	if cfg.NotifyMaxAttempts < 1 || cfg.NotifyMaxAttempts > 10 {
		return fmt.Errorf("NotifyMaxAttempts must be in [1, 10], got %d", cfg.NotifyMaxAttempts)
	}
	if cfg.CalendarReconcileInterval <= 0 {
		return fmt.Errorf("CalendarReconcileInterval must be positive, got %s", cfg.CalendarReconcileInterval)
	}
	if cfg.OutboxPollInterval <= 0 {
		return fmt.Errorf("OutboxPollInterval must be positive, got %s", cfg.OutboxPollInterval)
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("ListenAddr must not be empty")
	}
	if strings.TrimSpace(cfg.StoreDSN) == "" {
		return fmt.Errorf("StoreDSN must not be empty")
	}
	if strings.TrimSpace(cfg.TokenSigningKey) != "" && len(cfg.TokenSigningKey) < 16 {
		return fmt.Errorf("TokenSigningKey must be at least 16 bytes, got %d", len(cfg.TokenSigningKey))
	}
	if cfg.RateLimitEnabled && cfg.RateLimitPerPhonePerMin < 1 {
		return fmt.Errorf("RateLimitPerPhonePerMin must be positive when rate limiting is enabled, got %d", cfg.RateLimitPerPhonePerMin)
	}
	if cfg.TracingEnabled {
		if cfg.TracingExporterType != "grpc" && cfg.TracingExporterType != "http" {
			return fmt.Errorf("TracingExporterType must be grpc or http, got %q", cfg.TracingExporterType)
		}
		if strings.TrimSpace(cfg.TracingEndpoint) == "" {
			return fmt.Errorf("TracingEndpoint must not be empty when tracing is enabled")
		}
		if cfg.TracingSamplingRate < 0 || cfg.TracingSamplingRate > 1 {
			return fmt.Errorf("TracingSamplingRate must be in [0, 1], got %f", cfg.TracingSamplingRate)
		}
	}
	return nil
}
