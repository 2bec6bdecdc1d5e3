// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/waitlistd/internal/log"
)

func parseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Float64("default", defaultValue).Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// envPrefix is prepended to every knob name to form its ENV variable, e.g.
// HoldTTL -> WAITLISTD_HOLD_TTL.
const envPrefix = "WAITLISTD_"

func envKey(name string) string {
	return envPrefix + name
}

// parseString reads a string from the environment, logging its source for
// observability, matching the teacher's ParseString.
func parseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	sensitive := strings.Contains(strings.ToLower(key), "key") || strings.Contains(strings.ToLower(key), "token")
	if sensitive {
		logger.Debug().Str("key", key).Bool("sensitive", true).Str("source", "environment").Msg("using environment variable")
	} else {
		logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	}
	return v
}

func parseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

func parseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	return b
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}

// applyEnv overlays any WAITLISTD_* environment variables onto cfg.
func applyEnv(cfg Config) Config {
	cfg.HoldTTL = parseDuration(envKey("HOLD_TTL"), cfg.HoldTTL)
	cfg.ConfirmTokenTTL = parseDuration(envKey("CONFIRM_TOKEN_TTL"), cfg.ConfirmTokenTTL)
	cfg.TickerInterval = parseDuration(envKey("TICKER_INTERVAL"), cfg.TickerInterval)
	cfg.TickerPageSize = parseInt(envKey("TICKER_PAGE_SIZE"), cfg.TickerPageSize)
	cfg.CascadeFanoutK = parseInt(envKey("CASCADE_FANOUT_K"), cfg.CascadeFanoutK)
	cfg.MaxActiveEntriesPerPhone = parseInt(envKey("MAX_ACTIVE_ENTRIES_PER_PHONE"), cfg.MaxActiveEntriesPerPhone)
	cfg.NotifyMaxAttempts = parseInt(envKey("NOTIFY_MAX_ATTEMPTS"), cfg.NotifyMaxAttempts)
	cfg.CalendarReconcileInterval = parseDuration(envKey("CALENDAR_RECONCILE_INTERVAL"), cfg.CalendarReconcileInterval)
	cfg.CalendarReconcilePageSize = parseInt(envKey("CALENDAR_RECONCILE_PAGE_SIZE"), cfg.CalendarReconcilePageSize)
	cfg.OutboxPollInterval = parseDuration(envKey("OUTBOX_POLL_INTERVAL"), cfg.OutboxPollInterval)
	cfg.OutboxPageSize = parseInt(envKey("OUTBOX_PAGE_SIZE"), cfg.OutboxPageSize)
	cfg.ListenAddr = parseString(envKey("LISTEN_ADDR"), cfg.ListenAddr)
	cfg.MetricsAddr = parseString(envKey("METRICS_ADDR"), cfg.MetricsAddr)
	cfg.StoreDSN = parseString(envKey("STORE_DSN"), cfg.StoreDSN)
	cfg.OutboxDir = parseString(envKey("OUTBOX_DIR"), cfg.OutboxDir)
	cfg.RedisAddr = parseString(envKey("REDIS_ADDR"), cfg.RedisAddr)
	cfg.TokenSigningKey = parseString(envKey("TOKEN_SIGNING_KEY"), cfg.TokenSigningKey)
	cfg.RateLimitEnabled = parseBool(envKey("RATE_LIMIT_ENABLED"), cfg.RateLimitEnabled)
	cfg.RateLimitPerPhonePerMin = parseInt(envKey("RATE_LIMIT_PER_PHONE_PER_MIN"), cfg.RateLimitPerPhonePerMin)
	cfg.TracingEnabled = parseBool(envKey("TRACING_ENABLED"), cfg.TracingEnabled)
	cfg.TracingServiceName = parseString(envKey("TRACING_SERVICE_NAME"), cfg.TracingServiceName)
	cfg.ServiceVersion = parseString(envKey("SERVICE_VERSION"), cfg.ServiceVersion)
	cfg.Environment = parseString(envKey("ENVIRONMENT"), cfg.Environment)
	cfg.TracingExporterType = parseString(envKey("TRACING_EXPORTER_TYPE"), cfg.TracingExporterType)
	cfg.TracingEndpoint = parseString(envKey("TRACING_ENDPOINT"), cfg.TracingEndpoint)
	cfg.TracingSamplingRate = parseFloat(envKey("TRACING_SAMPLING_RATE"), cfg.TracingSamplingRate)
	return cfg
}
