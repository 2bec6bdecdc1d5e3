// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fsm

import "github.com/ManuGH/waitlistd/internal/domain/waitlist/model"

// EntryEvent names a WaitlistEntry lifecycle event.
type EntryEvent string

const (
	EntryEvNotify  EntryEvent = "notify"  // held against a slot
	EntryEvCascade EntryEvent = "cascade" // slot declined/expired, entry returns to the pool
	EntryEvConfirm EntryEvent = "confirm"
	EntryEvRemove  EntryEvent = "remove"
)

// EntryDecision says whether an event is allowed from a given entry state.
type EntryDecision struct {
	Allowed bool
	To      model.EntryStatus
	Reason  string
}

func allowEntry(to model.EntryStatus) EntryDecision { return EntryDecision{Allowed: true, To: to} }
func denyEntry(reason string) EntryDecision         { return EntryDecision{Allowed: false, Reason: reason} }

// entryDecisionTable mirrors spec §3's WaitlistEntry lifecycle: active ->
// notified -> {active on cascade, confirmed, removed}. Status only ever
// moves forward along this graph; remove is reachable from any
// non-terminal state (customer withdrawal, dedupe-on-confirm, or booking of
// another slot by the same phone).
var entryDecisionTable = map[model.EntryStatus]map[EntryEvent]EntryDecision{
	model.EntryActive: {
		EntryEvNotify:  allowEntry(model.EntryNotified),
		EntryEvCascade: denyEntry(ReasonNotInExpectedFrom),
		EntryEvConfirm: denyEntry(ReasonNotInExpectedFrom),
		EntryEvRemove:  allowEntry(model.EntryRemoved),
	},
	model.EntryNotified: {
		EntryEvNotify:  denyEntry(ReasonNotInExpectedFrom),
		EntryEvCascade: allowEntry(model.EntryActive),
		EntryEvConfirm: allowEntry(model.EntryConfirmed),
		EntryEvRemove:  allowEntry(model.EntryRemoved),
	},
	model.EntryConfirmed: {
		EntryEvNotify:  denyEntry(ReasonAlreadyTerminal),
		EntryEvCascade: denyEntry(ReasonAlreadyTerminal),
		EntryEvConfirm: denyEntry(ReasonAlreadyTerminal),
		EntryEvRemove:  allowEntry(model.EntryRemoved), // dedupe-on-confirm removes other actives
	},
	model.EntryRemoved: {
		EntryEvNotify:  denyEntry(ReasonAlreadyTerminal),
		EntryEvCascade: denyEntry(ReasonAlreadyTerminal),
		EntryEvConfirm: denyEntry(ReasonAlreadyTerminal),
		EntryEvRemove:  denyEntry(ReasonAlreadyTerminal),
	},
}

// EntryDecisionFor returns the decision for firing ev against an entry
// currently in state `from`.
func EntryDecisionFor(from model.EntryStatus, ev EntryEvent) EntryDecision {
	events, ok := entryDecisionTable[from]
	if !ok {
		return denyEntry(ReasonNotInExpectedFrom)
	}
	decision, ok := events[ev]
	if !ok {
		return denyEntry(ReasonNotInExpectedFrom)
	}
	return decision
}
