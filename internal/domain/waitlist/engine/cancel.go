// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// Cancel implements spec §4.3's `open|held -> canceled` admin transition
// (spec §6's `cancel_slot(slot_id)`): allowed from any non-booked state,
// clears any hold, and best-effort enqueues the calendar delete outside the
// core transaction.
func (e *Engine) Cancel(ctx context.Context, tenantID, slotID, actorID, reason string) (CancelResult, error) {
	fromState := ""
	if slot, err := e.store.GetSlot(ctx, tenantID, slotID); err == nil {
		fromState = string(slot.Status)
	}

	canceled, err := e.store.CancelSlot(ctx, tenantID, slotID, actorID, reason)
	if err != nil {
		return CancelResult{}, err
	}
	e.invalidateCandidates(canceled)
	metrics.RecordHoldReleased("canceled")

	if e.audit != nil {
		e.audit.SlotCanceled(ctx, tenantID, slotID, fromState, actorID, reason)
	}

	if e.calendar != nil {
		_ = e.calendar.EnqueueDelete(ctx, tenantID, canceled)
	}

	return CancelResult{Slot: canceled}, nil
}

// CancelResult reports the outcome of a slot cancellation.
type CancelResult struct {
	Slot model.Slot
}
