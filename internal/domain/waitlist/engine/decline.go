// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// DeclineResult reports the cascade outcome triggered by a decline.
type DeclineResult struct {
	Cascade CascadeOutcome
}

// Decline implements the held->open release shared by an explicit customer
// decline and the Hold Ticker's expiry path, then triggers Cascade. The
// customer-facing decline always reports success once the release commits —
// a cascade failure is logged, not retried, and never surfaced to the
// declining customer (spec §4.6: decline succeeds independent of
// whether a replacement candidate is found).
func (e *Engine) Decline(ctx context.Context, tenantID, declineToken string, now time.Time) (DeclineResult, error) {
	claims, err := e.codec.Verify(declineToken, model.TokenDecline, tenantID, now)
	if err != nil {
		return DeclineResult{}, errkind.Newf(errkind.InvalidToken, "decline token invalid", err)
	}

	slot, released, err := e.store.ReleaseHold(ctx, tenantID, claims.SlotID, claims.EntryID)
	if err != nil {
		return DeclineResult{}, err
	}
	if !released {
		// The slot already moved on (re-held by cascade, confirmed, or
		// canceled) since this token was issued: replaying the decline is
		// a no-op, not a precondition failure.
		return DeclineResult{}, nil
	}
	e.invalidateCandidates(slot)
	metrics.RecordHoldReleased("declined")

	if e.audit != nil {
		e.audit.EntryDeclined(ctx, tenantID, claims.EntryID, slot.ID, "customer_declined")
	}

	outcome, cascadeErr := e.Cascade(ctx, tenantID, slot.ID)
	if cascadeErr != nil {
		log.WithComponent("engine").Error().Err(cascadeErr).
			Str("tenant_id", tenantID).Str("slot_id", slot.ID).
			Msg("cascade after decline failed")
		return DeclineResult{}, nil
	}
	return DeclineResult{Cascade: outcome}, nil
}
