// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// tickerBatchConcurrency bounds how many expired slots a single TickOnce
// pass releases and cascades in parallel. Distinct slots never contend on
// the same store row, so there is no correctness reason to cap this beyond
// keeping one runaway tick from opening unbounded concurrent store
// transactions.
const tickerBatchConcurrency = 8

// TickResult reports one pass of the Hold Ticker.
type TickResult struct {
	ScannedSlots    int
	ReleasedHolds   int
	CascadesStarted int
	Errors          int
}

// Run starts the Hold Ticker loop (spec §4.5): on every cfg.TickerInterval
// it scans for slots whose hold has expired and releases them. Safe to run
// from multiple processes concurrently, since every transition it performs
// is CAS-guarded at the store.
func (e *Engine) Run(ctx context.Context) {
	if e.cfg.TickerInterval <= 0 {
		return
	}

	ticker := time.NewTicker(e.cfg.TickerInterval)
	defer ticker.Stop()

	log.WithComponent("engine").Info().Dur("interval", e.cfg.TickerInterval).Msg("hold ticker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.TickOnce(ctx)
		}
	}
}

// TickOnce performs exactly one Hold Ticker pass: it is deterministic and
// suitable for unit testing without a running goroutine.
func (e *Engine) TickOnce(ctx context.Context) TickResult {
	pageSize := e.cfg.TickerPageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	now := e.now()
	expired, err := e.store.ListExpiredHolds(ctx, now, pageSize)
	if err != nil {
		log.WithComponent("engine").Error().Err(err).Msg("hold ticker scan failed")
		return TickResult{Errors: 1}
	}

	var released, errored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tickerBatchConcurrency)
	for _, slot := range expired {
		slot := slot
		g.Go(func() error {
			if e.expireOne(gctx, slot) {
				released.Add(1)
			} else {
				errored.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait() // expireOne never returns an error; it logs and counts instead

	result := TickResult{
		ScannedSlots:    len(expired),
		ReleasedHolds:   int(released.Load()),
		CascadesStarted: int(released.Load()),
		Errors:          int(errored.Load()),
	}
	metrics.RecordTickerRun(float64(now.Unix()))
	e.lastTick.Store(now.UnixNano())
	return result
}

// LastTickerRun reports when TickOnce last completed, for health.TickerChecker.
// A zero time means the ticker has not completed a pass yet.
func (e *Engine) LastTickerRun() time.Time {
	ns := e.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// expireOne releases a single expired hold and immediately cascades to the
// next candidate, mirroring Decline's shape but with "system" as the actor
// and no signed token to verify — the slot scanned by ListExpiredHolds
// already carries its holder's entry ID.
func (e *Engine) expireOne(ctx context.Context, slot model.Slot) bool {
	tenantID, slotID, entryID := slot.TenantID, slot.ID, slot.HolderEntryID

	released, didRelease, err := e.store.ReleaseHold(ctx, tenantID, slotID, entryID)
	if err != nil {
		log.WithComponent("engine").Warn().Err(err).Str("tenant_id", tenantID).Str("slot_id", slotID).
			Msg("failed to release expired hold")
		return false
	}
	if !didRelease {
		// Scanned as held-and-expired, but something else (a concurrent
		// decline, confirm, or cascade) already moved the slot on by the
		// time this ticker pass reached it: nothing to do.
		return true
	}
	e.invalidateCandidates(released)
	metrics.RecordHoldReleased("expired")

	if e.audit != nil {
		e.audit.EntryExpired(ctx, tenantID, entryID, released.ID)
	}

	if _, err := e.Cascade(ctx, tenantID, released.ID); err != nil {
		log.WithComponent("engine").Warn().Err(err).Str("tenant_id", tenantID).Str("slot_id", released.ID).
			Msg("cascade after expiry failed")
	}
	return true
}
