// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/token"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// CascadeOutcome reports what the Cascade Protocol did.
type CascadeOutcome struct {
	CandidatesConsidered int
	Held                 bool
	Entry                model.WaitlistEntry
	Slot                 model.Slot
}

// Cascade implements spec §4.6: given a slot that just transitioned
// held->open, it re-runs the Candidate Selector and atomically re-holds the
// top eligible candidate. A candidate whose status has changed out from
// under it by the time of the atomic hold (lost a race to another path) is
// skipped and the next-ranked candidate is tried, bounded to
// cfg.CascadeFanoutK attempts to avoid thrash. Cascade is a single step —
// it never recurses; a further decline is an independent event handled by
// a later call.
func (e *Engine) Cascade(ctx context.Context, tenantID, slotID string) (CascadeOutcome, error) {
	slot, err := e.store.GetSlot(ctx, tenantID, slotID)
	if err != nil {
		return CascadeOutcome{}, err
	}
	if slot.Status != model.SlotOpen {
		// Already moved on (e.g. canceled concurrently); nothing to cascade.
		return CascadeOutcome{}, nil
	}

	ranked, err := e.selector.Candidates(ctx, slot)
	if err != nil {
		return CascadeOutcome{}, err
	}

	considered := 0
	fanout := e.cfg.CascadeFanoutK
	for i, candidate := range ranked {
		if i >= fanout {
			break
		}
		considered++

		holdExpires := e.now().Add(e.cfg.HoldTTL)
		held, holdErr := e.store.HoldSlotForEntry(ctx, tenantID, slotID, candidate.Entry.ID, holdExpires)
		if holdErr != nil {
			if errkind.Is(holdErr, errkind.PreconditionFailed) {
				// Candidate's status changed (or slot already moved); skip.
				continue
			}
			return CascadeOutcome{}, holdErr
		}

		e.invalidateCandidates(slot)
		metrics.RecordHoldCreated("cascade")
		e.notifyCandidate(ctx, tenantID, candidate.Entry, held)

		if e.audit != nil {
			e.audit.CascadeRun(ctx, tenantID, slotID, considered, candidate.Entry.ID, "success")
		}
		metrics.RecordCascadeRun("held")
		return CascadeOutcome{CandidatesConsidered: considered, Held: true, Entry: candidate.Entry, Slot: held}, nil
	}

	if e.audit != nil {
		e.audit.CascadeRun(ctx, tenantID, slotID, considered, "", "no_eligible_candidate")
	}
	metrics.RecordCascadeRun("no_eligible_candidate")
	return CascadeOutcome{CandidatesConsidered: considered}, nil
}

// notifyCandidate issues confirm/decline tokens and hands them to the
// Notifier. Notification failures are logged but never roll back the hold
// — the hold is durable, the notification is eventual (spec §4.7).
func (e *Engine) notifyCandidate(ctx context.Context, tenantID string, entry model.WaitlistEntry, slot model.Slot) {
	if e.audit != nil {
		e.audit.SlotHeld(ctx, tenantID, slot.ID, entry.ID)
		e.audit.EntryNotified(ctx, tenantID, entry.ID, slot.ID)
	}
	if e.notifier == nil || e.codec == nil {
		return
	}

	now := e.now()
	confirmTok, err := e.codec.Issue(tenantID, slot.ID, entry.ID, model.TokenConfirm, now)
	if err != nil {
		return
	}
	declineTok, err := e.codec.Issue(tenantID, slot.ID, entry.ID, model.TokenDecline, now)
	if err != nil {
		return
	}

	n, err := e.store.CreateNotification(ctx, model.Notification{
		TenantID:         tenantID,
		EntryID:          entry.ID,
		SlotID:           slot.ID,
		Channel:          model.ChannelSMS,
		Status:           model.NotificationPending,
		ConfirmTokenHash: token.Hash(confirmTok),
		DeclineTokenHash: token.Hash(declineTok),
		CreatedAt:        now,
	})
	if err != nil {
		return
	}

	req := NotificationRequest{
		TenantID:     tenantID,
		Entry:        entry,
		Slot:         slot,
		ConfirmToken: confirmTok,
		DeclineToken: declineTok,
	}
	if sendErr := e.notifier.Notify(ctx, req); sendErr != nil {
		_ = e.store.UpdateNotificationStatus(ctx, tenantID, n.ID, model.NotificationFailed, "", sendErr.Error())
		metrics.RecordCascadeNotification("failed")
		return
	}
	_ = e.store.UpdateNotificationStatus(ctx, tenantID, n.ID, model.NotificationSent, "", "")
	metrics.RecordCascadeNotification("sent")
}
