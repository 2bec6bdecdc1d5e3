// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package priority implements the waitlist engine's pure, deterministic
// scoring functions. Nothing here touches the store or the clock except by
// the explicit `now` parameter — the same (entry, slot, now) input always
// yields the same score.
package priority

import (
	"sort"
	"time"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

const (
	baseScore       = 20
	vipBonus        = 15
	serviceMatch    = 15
	staffPreference = 10
	timeWindowMatch = 10
	tenureCap       = 20
	tenureUnit      = 7 * 24 * time.Hour

	staffExactMatch  = 10
	durationFitBonus = 5
)

// Score computes `priority_score(entry, now)`: a base score plus bonuses for
// VIP status, service match (always true post-filter), an expressed staff
// preference, time-window compatibility (always true post-filter), and a
// tenure bonus capped at 20 points, one point per 7 days since CreatedAt.
func Score(entry model.WaitlistEntry, now time.Time) int {
	score := baseScore
	if entry.VIP {
		score += vipBonus
	}
	score += serviceMatch
	if entry.HasStaffPreference() {
		score += staffPreference
	}
	score += timeWindowMatch
	score += tenureBonus(entry.CreatedAt, now)
	return score
}

func tenureBonus(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	weeks := int(now.Sub(createdAt) / tenureUnit)
	if weeks > tenureCap {
		return tenureCap
	}
	return weeks
}

// MatchScore computes `match_score(entry, slot)`: the entry's priority score
// plus a bonus when the entry's staff preference exactly matches the slot's
// staff, plus a bonus when the slot's duration fits within the entry's
// stated time window.
func MatchScore(entry model.WaitlistEntry, slot model.Slot, now time.Time) int {
	score := Score(entry, now)
	if entry.StaffID != "" && entry.StaffID == slot.StaffID {
		score += staffExactMatch
	}
	if slot.Duration() <= entry.LatestTime.Sub(entry.EarliestTime) {
		score += durationFitBonus
	}
	return score
}

// Ranked is a WaitlistEntry annotated with its computed match score against
// a specific candidate slot.
type Ranked struct {
	Entry model.WaitlistEntry
	Score int
}

// Rank orders entries by match_score desc, then CreatedAt asc (FIFO
// tiebreak), then ID asc to guarantee a total, deterministic order.
func Rank(entries []model.WaitlistEntry, slot model.Slot, now time.Time) []Ranked {
	ranked := make([]Ranked, len(entries))
	for i, e := range entries {
		ranked[i] = Ranked{Entry: e, Score: MatchScore(e, slot, now)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].Entry.CreatedAt.Equal(ranked[j].Entry.CreatedAt) {
			return ranked[i].Entry.CreatedAt.Before(ranked[j].Entry.CreatedAt)
		}
		return ranked[i].Entry.ID < ranked[j].Entry.ID
	})

	return ranked
}
