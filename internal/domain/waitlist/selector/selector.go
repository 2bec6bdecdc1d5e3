// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package selector implements the read-only Candidate Selector (spec §4.2):
// it composes a Store query with the pure priority package to produce a
// ranked, deterministic candidate list for a given open slot. It never
// mutates state.
package selector

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/clock"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/priority"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
)

// Interface is what the engine depends on: rank candidates for a slot, or
// return its single best pick. Both Selector and CachingSelector satisfy
// it, so the engine can be wired with or without a candidate-ranking cache
// without knowing the difference.
type Interface interface {
	Candidates(ctx context.Context, slot model.Slot) ([]priority.Ranked, error)
	Top(ctx context.Context, slot model.Slot) (model.WaitlistEntry, bool, error)
}

// Selector selects and ranks waitlist candidates for open slots.
type Selector struct {
	store store.Store
	clock clock.Clock
}

// New returns a Selector backed by the given store and clock.
func New(s store.Store, c clock.Clock) *Selector {
	return &Selector{store: s, clock: c}
}

// Candidates returns the ranked, eligible waitlist entries for slot, per
// spec §4.2's eligibility rules. An empty result is valid and distinct from
// an error — it simply means nobody is waiting for this slot right now.
func (s *Selector) Candidates(ctx context.Context, slot model.Slot) ([]priority.Ranked, error) {
	entries, err := s.store.ListCandidates(ctx, store.CandidateFilter{
		TenantID:  slot.TenantID,
		ServiceID: slot.ServiceID,
		StaffID:   slot.StaffID,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	return priority.Rank(entries, slot, now), nil
}

// Top returns the single best candidate for slot, or ok=false if none are
// eligible.
func (s *Selector) Top(ctx context.Context, slot model.Slot) (model.WaitlistEntry, bool, error) {
	ranked, err := s.Candidates(ctx, slot)
	if err != nil {
		return model.WaitlistEntry{}, false, err
	}
	if len(ranked) == 0 {
		return model.WaitlistEntry{}, false, nil
	}
	return ranked[0].Entry, true, nil
}

func (s *Selector) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
