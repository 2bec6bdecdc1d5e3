// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/priority"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// OpenSlotResult is the admin-open / re-match response shape spec §6 names:
// the slot as it now stands, the full ranked candidate list considered, and
// whether a hold (and therefore a notification) was placed.
type OpenSlotResult struct {
	Slot                 model.Slot
	Candidates           []priority.Ranked
	TopCandidate         *model.WaitlistEntry
	NotificationEnqueued bool
}

// OpenSlot implements spec §6's `open_slot(slot_id)`: rank the waitlist for
// slot and, if any candidate is eligible, hold it for the top pick and fire
// the notification. Unlike HoldTopCandidate it also returns the full ranked
// list, which the wire layer surfaces to the admin caller.
func (e *Engine) OpenSlot(ctx context.Context, tenantID, slotID string) (OpenSlotResult, error) {
	slot, err := e.store.GetSlot(ctx, tenantID, slotID)
	if err != nil {
		return OpenSlotResult{}, err
	}
	if slot.Status != model.SlotOpen {
		return OpenSlotResult{}, errkind.WithDetail(errkind.DetailSlotNoLongerAvailable, "slot is not open")
	}

	ranked, err := e.selector.Candidates(ctx, slot)
	if err != nil {
		return OpenSlotResult{}, err
	}
	result := OpenSlotResult{Slot: slot, Candidates: ranked}
	if len(ranked) == 0 {
		return result, nil
	}

	held, top, ok, err := e.HoldTopCandidate(ctx, tenantID, slotID)
	if err != nil {
		return OpenSlotResult{}, err
	}
	if !ok {
		return result, nil
	}
	result.Slot = held
	result.TopCandidate = &top
	result.NotificationEnqueued = true
	return result, nil
}

// HoldTopCandidate selects the top eligible candidate for an open slot and
// atomically holds it. It is shared by the admin re-match path and by
// Cascade's first attempt; both need "pick best candidate, hold it, notify"
// without the skip-and-retry walk Cascade layers on top.
//
// Returns ok=false (no error) if the slot has no eligible candidates.
func (e *Engine) HoldTopCandidate(ctx context.Context, tenantID, slotID string) (held model.Slot, entry model.WaitlistEntry, ok bool, err error) {
	return e.holdTopCandidate(ctx, tenantID, slotID, 0)
}

// HoldTopCandidateWithTTL is HoldTopCandidate with a caller-supplied hold
// duration, for spec §6's `hold_slot(slot_id, ttl_minutes?)` wire operation.
// ttl <= 0 falls back to the engine's configured default.
func (e *Engine) HoldTopCandidateWithTTL(ctx context.Context, tenantID, slotID string, ttl time.Duration) (held model.Slot, entry model.WaitlistEntry, ok bool, err error) {
	return e.holdTopCandidate(ctx, tenantID, slotID, ttl)
}

func (e *Engine) holdTopCandidate(ctx context.Context, tenantID, slotID string, ttlOverride time.Duration) (held model.Slot, entry model.WaitlistEntry, ok bool, err error) {
	slot, err := e.store.GetSlot(ctx, tenantID, slotID)
	if err != nil {
		return model.Slot{}, model.WaitlistEntry{}, false, err
	}
	if slot.Status != model.SlotOpen {
		return model.Slot{}, model.WaitlistEntry{}, false, errkind.WithDetail(errkind.DetailSlotNoLongerAvailable, "slot is not open")
	}

	top, found, err := e.selector.Top(ctx, slot)
	if err != nil {
		return model.Slot{}, model.WaitlistEntry{}, false, err
	}
	if !found {
		return model.Slot{}, model.WaitlistEntry{}, false, nil
	}

	ttl := e.cfg.HoldTTL
	if ttlOverride > 0 {
		ttl = ttlOverride
	}
	holdExpires := e.now().Add(ttl)
	held, err = e.store.HoldSlotForEntry(ctx, tenantID, slotID, top.ID, holdExpires)
	if err != nil {
		return model.Slot{}, model.WaitlistEntry{}, false, err
	}
	e.invalidateCandidates(slot)
	metrics.RecordHoldCreated("hold_top_candidate")

	e.notifyCandidate(ctx, tenantID, top, held)
	return held, top, true, nil
}

// selectorInvalidator is implemented by selector.CachingSelector. The
// engine checks for it rather than depending on the concrete type, so a
// plain selector.Selector (no cache wired) works unchanged.
type selectorInvalidator interface {
	Invalidate(slot model.Slot)
}

// invalidateCandidates drops any cached ranking for slot after a write that
// could change who is eligible or how they rank.
func (e *Engine) invalidateCandidates(slot model.Slot) {
	if inv, ok := e.selector.(selectorInvalidator); ok {
		inv.Invalidate(slot)
	}
}
