// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package calendar implements the Calendar Adapter (spec §4.8): best-effort
// creation/deletion of external-calendar mirrors of booked slots, plus a
// reconciler that retries rows stuck in CalendarError.
package calendar

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
	"github.com/ManuGH/waitlistd/internal/log"
)

// Provider talks to the actual external calendar system (Google Calendar,
// CalDAV, etc). Adapter never calls a provider from inside the core
// transaction: EnqueueCreate/EnqueueDelete run after the engine's store
// transition has committed and call the Provider inline; the background
// Reconciler retries failed deletes.
type Provider interface {
	CreateEvent(ctx context.Context, staffID string, slot model.Slot, booking model.Booking) (externalEventID string, err error)
	DeleteEvent(ctx context.Context, externalEventID string) error
}

// Adapter implements engine.CalendarEnqueuer over a Store and Provider.
type Adapter struct {
	store    store.Store
	provider Provider
}

// New returns an Adapter.
func New(s store.Store, p Provider) *Adapter {
	return &Adapter{store: s, provider: p}
}

var _ engine.CalendarEnqueuer = (*Adapter)(nil)

// EnqueueCreate attempts the provider call inline and records the outcome
// as a CalendarEvent row; a failure leaves the row in CalendarError (the
// Reconciler does not retry create-side errors, which carry no external
// event ID), never surfacing as a Confirm error (spec §4.8:
// calendar sync is best-effort relative to the booking it mirrors).
func (a *Adapter) EnqueueCreate(ctx context.Context, tenantID string, slot model.Slot, booking model.Booking) error {
	now := time.Now()
	ev := model.CalendarEvent{
		TenantID:  tenantID,
		SlotID:    slot.ID,
		StaffID:   slot.StaffID,
		Status:    model.CalendarCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	externalID, err := a.provider.CreateEvent(ctx, slot.StaffID, slot, booking)
	if err != nil {
		ev.Status = model.CalendarError
		ev.LastError = err.Error()
		if _, storeErr := a.store.UpsertCalendarEvent(ctx, ev); storeErr != nil {
			log.WithComponent("calendar").Error().Err(storeErr).Msg("failed to persist calendar error row")
		}
		return err
	}

	ev.ExternalEventID = externalID
	_, storeErr := a.store.UpsertCalendarEvent(ctx, ev)
	return storeErr
}

// EnqueueDelete mirrors a canceled or expired-booked slot's removal from the
// external calendar, same best-effort contract as EnqueueCreate.
func (a *Adapter) EnqueueDelete(ctx context.Context, tenantID string, slot model.Slot) error {
	now := time.Now()
	ev := model.CalendarEvent{
		TenantID:  tenantID,
		SlotID:    slot.ID,
		StaffID:   slot.StaffID,
		Status:    model.CalendarDeleted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	events, err := a.store.ListCalendarEventsNeedingReconcile(ctx, 0)
	if err != nil {
		return err
	}
	for _, existing := range events {
		if existing.SlotID != slot.ID || existing.ExternalEventID == "" {
			continue
		}
		if delErr := a.provider.DeleteEvent(ctx, existing.ExternalEventID); delErr != nil {
			ev.Status = model.CalendarError
			ev.LastError = delErr.Error()
			_, storeErr := a.store.UpsertCalendarEvent(ctx, ev)
			return storeErr
		}
	}

	_, storeErr := a.store.UpsertCalendarEvent(ctx, ev)
	return storeErr
}

// Reconciler retries the provider delete for CalendarEvent rows stuck in
// CalendarError that carry an external event ID, bounded to a page per pass. It is driven by the same ticker-style Run/TickOnce split
// as the engine's Hold Ticker.
type Reconciler struct {
	store    store.Store
	provider Provider
	interval time.Duration
	pageSize int
}

// NewReconciler returns a Reconciler.
func NewReconciler(s store.Store, p Provider, interval time.Duration, pageSize int) *Reconciler {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Reconciler{store: s, provider: p, interval: interval, pageSize: pageSize}
}

// Run starts the reconcile loop.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.TickOnce(ctx)
		}
	}
}

// TickOnce retries the delete of each errored CalendarEvent row in one page
// that carries an external event ID, once, deterministically; rows without
// one are skipped. It returns the number of rows recovered.
func (r *Reconciler) TickOnce(ctx context.Context) int {
	events, err := r.store.ListCalendarEventsNeedingReconcile(ctx, r.pageSize)
	if err != nil {
		log.WithComponent("calendar").Error().Err(err).Msg("reconciler scan failed")
		return 0
	}

	fixed := 0
	for _, ev := range events {
		if ev.Status != model.CalendarError || ev.ExternalEventID == "" {
			// A create-side error has no external ID to retry against; it
			// is re-driven by the engine's next EnqueueCreate call for that
			// slot instead (e.g. on a subsequent confirm retry).
			continue
		}
		if err := r.provider.DeleteEvent(ctx, ev.ExternalEventID); err != nil {
			log.WithComponent("calendar").Warn().Err(err).Str("slot_id", ev.SlotID).
				Msg("reconcile delete retry failed")
			continue
		}
		ev.Status = model.CalendarDeleted
		ev.UpdatedAt = time.Now()
		if _, err := r.store.UpsertCalendarEvent(ctx, ev); err != nil {
			log.WithComponent("calendar").Warn().Err(err).Str("slot_id", ev.SlotID).
				Msg("reconcile failed to persist recovered event")
			continue
		}
		fixed++
	}
	return fixed
}
