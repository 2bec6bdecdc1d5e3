// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder holds a Config with atomic hot-reload support. Only a subset of
// knobs are safe to change at runtime without restarting the process —
// cascade_fanout_k, notify retry attempts, and the ticker/reconcile
// intervals — per SPEC_FULL.md §2.3. Everything else (store DSN, listen
// addr, signing key) requires a restart and is ignored on reload.
type Holder struct {
	mu       sync.Mutex
	current  atomic.Pointer[Config]
	loader   *Loader
	watcher  *fsnotify.Watcher
	dir      string
	file     string
	logger   zerolog.Logger
	listenMu sync.RWMutex
	listeners []chan<- Config
}

// NewHolder wraps an already-loaded Config for hot-reload.
func NewHolder(initial Config, loader *Loader) *Holder {
	h := &Holder{
		loader: loader,
		logger: log.WithComponent("config"),
	}
	h.current.Store(&initial)
	return h
}

// Get returns the current Config (thread-safe).
func (h *Holder) Get() Config {
	if c := h.current.Load(); c != nil {
		return *c
	}
	return Config{}
}

// Reload re-reads the config file and ENV, applies the hot-reloadable
// subset onto the current Config, and validates the merged result before
// swapping it in. A validation failure keeps the old Config in place.
func (h *Holder) Reload(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload: load failed, keeping previous config")
		return fmt.Errorf("load config: %w", err)
	}

	merged := h.Get()
	merged.CascadeFanoutK = next.CascadeFanoutK
	merged.NotifyMaxAttempts = next.NotifyMaxAttempts
	merged.TickerInterval = next.TickerInterval
	merged.CalendarReconcileInterval = next.CalendarReconcileInterval

	if err := Validate(merged); err != nil {
		h.logger.Error().Err(err).Msg("config reload: merged config failed validation, keeping previous config")
		return fmt.Errorf("validate reloaded config: %w", err)
	}

	h.current.Store(&merged)
	h.logger.Info().
		Int("cascade_fanout_k", merged.CascadeFanoutK).
		Int("notify_max_attempts", merged.NotifyMaxAttempts).
		Dur("ticker_interval", merged.TickerInterval).
		Msg("config reloaded")

	h.notifyListeners(merged)
	return nil
}

// RegisterListener registers a channel to receive the merged Config after
// every successful reload. The caller owns the channel's lifecycle.
func (h *Holder) RegisterListener(ch chan<- Config) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg Config) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Msg("config reload listener channel full, skipping notify")
		}
	}
}

// StartWatcher watches the loader's config file for changes, debouncing
// bursts of writes before calling Reload. A no-op if the loader has no
// configPath (ENV-only configuration).
func (h *Holder) StartWatcher(ctx context.Context, configPath string) error {
	if configPath == "" {
		h.logger.Info().Msg("config file watcher disabled (ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher
	h.dir = filepath.Dir(configPath)
	h.file = filepath.Base(configPath)

	if err := watcher.Add(h.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	const debounceWindow = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = h.watcher.Close()
			return
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != h.file {
				continue
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Msg("automatic config reload failed")
				}
			})
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Stop closes the file watcher, if running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}
