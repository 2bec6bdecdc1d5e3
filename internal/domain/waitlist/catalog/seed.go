// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/log"
)

// seedFile mirrors the on-disk catalog format: one file lists every
// tenant's services and staff, since a single waitlistd process serves
// multiple tenants and the catalog is small enough to keep in one file.
type seedFile struct {
	Tenants []seedTenant `yaml:"tenants"`
}

type seedTenant struct {
	ID       string        `yaml:"id"`
	Services []seedService `yaml:"services"`
	Staff    []seedStaff   `yaml:"staff"`
}

type seedService struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"`
	Price    int64  `yaml:"price"`
}

type seedStaff struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadSeedFile parses path and adds or overwrites c's entries with the
// file's contents; entries already in c that the file does not list are
// kept. A malformed duration on a service is skipped with a warning
// rather than failing the whole load, so one bad entry doesn't take the
// rest of the catalog down.
func LoadSeedFile(c *Static, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: read seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("catalog: parse seed file: %w", err)
	}

	logger := log.WithComponent("catalog")
	for _, t := range sf.Tenants {
		for _, svc := range t.Services {
			dur, err := time.ParseDuration(svc.Duration)
			if err != nil {
				logger.Warn().Str("tenant", t.ID).Str("service", svc.ID).Str("duration", svc.Duration).Msg("skipping service with unparseable duration")
				continue
			}
			c.PutService(model.Service{ID: svc.ID, TenantID: t.ID, Name: svc.Name, Duration: dur, Price: svc.Price})
		}
		for _, s := range t.Staff {
			c.PutStaff(model.Staff{ID: s.ID, TenantID: t.ID, Name: s.Name})
		}
	}
	return nil
}

// Watcher hot-reloads a Static catalog from its seed file on every write,
// mirroring internal/config.Holder's fsnotify-based reload loop so catalog
// edits (adding a service, renaming staff) take effect without a restart.
type Watcher struct {
	catalog *Static
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewWatcher wires w to reload c from path whenever path changes. Call
// Start to begin watching; the initial load still must be done via
// LoadSeedFile before the server starts serving traffic.
func NewWatcher(c *Static, path string) *Watcher {
	return &Watcher{catalog: c, path: path, logger: log.WithComponent("catalog")}
}

// Start begins watching the seed file's directory for changes. A no-op if
// path is empty (no catalog seed file configured).
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("catalog: watch seed dir: %w", err)
	}
	w.watcher = fw
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	base := filepath.Base(w.path)
	var debounce *time.Timer
	const debounceWindow = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				if err := LoadSeedFile(w.catalog, w.path); err != nil {
					w.logger.Error().Err(err).Msg("catalog reload failed")
				} else {
					w.logger.Info().Str("path", w.path).Msg("catalog reloaded")
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("catalog watcher error")
		}
	}
}

// Stop closes the underlying file watcher, if running.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}
