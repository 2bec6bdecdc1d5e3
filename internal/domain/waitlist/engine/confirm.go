// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// ConfirmResult is what Confirm returns once a customer's confirm token has
// been accepted (or replayed).
type ConfirmResult struct {
	Slot    model.Slot
	Booking model.Booking
}

// Confirm implements spec §4.4's confirm transaction: verify the token,
// transition held->booked, insert the Booking, dedupe the customer's other
// active entries for the same phone, and best-effort enqueue the calendar
// sync outside the transaction boundary. Replaying an already-consumed
// confirm token for the same entry+slot returns the existing booking rather
// than an error.
func (e *Engine) Confirm(ctx context.Context, tenantID, confirmToken string, now time.Time) (ConfirmResult, error) {
	claims, err := e.codec.Verify(confirmToken, model.TokenConfirm, tenantID, now)
	if err != nil {
		return ConfirmResult{}, errkind.Newf(errkind.InvalidToken, "confirm token invalid", err)
	}

	result, err := e.store.ConfirmHold(ctx, tenantID, claims.SlotID, claims.EntryID, now)
	if err != nil {
		return ConfirmResult{}, err
	}
	e.invalidateCandidates(result.Slot)
	metrics.RecordBookingConfirmed()

	if e.audit != nil {
		e.audit.SlotBooked(ctx, tenantID, result.Slot.ID, result.Entry.ID, result.Booking.ID)
		e.audit.EntryConfirmed(ctx, tenantID, result.Entry.ID, result.Slot.ID)
		for _, removedID := range result.RemovedOthers {
			e.audit.EntryRemoved(ctx, tenantID, removedID, "system", "duplicate_phone_on_confirm")
		}
	}

	if e.calendar != nil {
		if err := e.calendar.EnqueueCreate(ctx, tenantID, result.Slot, result.Booking); err != nil {
			// Best-effort: calendar sync failure never rolls back a confirm.
			_, _ = e.store.UpsertCalendarEvent(ctx, model.CalendarEvent{
				TenantID:  tenantID,
				SlotID:    result.Slot.ID,
				StaffID:   result.Slot.StaffID,
				Status:    model.CalendarError,
				LastError: errkind.Sanitized(err),
				CreatedAt: now,
				UpdatedAt: now,
			})
			metrics.RecordCalendarSync("create", "error")
		} else {
			metrics.RecordCalendarSync("create", "ok")
		}
	}

	return ConfirmResult{Slot: result.Slot, Booking: result.Booking}, nil
}
