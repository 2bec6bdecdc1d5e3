// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/waitlistd/internal/config"
	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and dependencies before
// waitlistd starts serving traffic.
func PerformStartupChecks(ctx context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddrs(logger, cfg); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}
	if err := checkOutboxDir(logger, cfg); err != nil {
		return fmt.Errorf("outbox directory check failed: %w", err)
	}
	checkTokenSigningKey(logger, cfg)
	checkStoreBackend(logger, cfg)

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddrs(logger zerolog.Logger, cfg config.Config) error {
	for _, addr := range []string{cfg.ListenAddr, cfg.MetricsAddr} {
		if addr == "" {
			continue
		}
		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 0 || portNum > 65535 {
			return fmt.Errorf("invalid listen port %q in %q", port, addr)
		}
	}
	logger.Info().Str("listen_addr", cfg.ListenAddr).Str("metrics_addr", cfg.MetricsAddr).
		Msg("listen addresses valid")
	return nil
}

// checkOutboxDir ensures the badger-backed outbox queue's data directory
// exists and is writable before the worker tries to open it.
func checkOutboxDir(logger zerolog.Logger, cfg config.Config) error {
	if cfg.OutboxDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.OutboxDir, 0750); err != nil {
		return fmt.Errorf("failed to ensure outbox directory %q: %w", cfg.OutboxDir, err)
	}
	probe := filepath.Join(cfg.OutboxDir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("outbox directory %q is not writable: %w", cfg.OutboxDir, err)
	}
	_ = os.Remove(probe)
	logger.Info().Str("path", cfg.OutboxDir).Msg("outbox directory is writable")
	return nil
}

func checkTokenSigningKey(logger zerolog.Logger, cfg config.Config) {
	if cfg.TokenSigningKey == "" {
		logger.Warn().Msg("no WAITLISTD_TOKEN_SIGNING_KEY set; confirm/decline tokens cannot be issued")
		return
	}
	logger.Info().Msg("token signing key configured")
}

func checkStoreBackend(logger zerolog.Logger, cfg config.Config) {
	if cfg.StoreDSN == ":memory:" {
		logger.Warn().Msg("store backend is in-memory; state is lost on restart")
	}
}
