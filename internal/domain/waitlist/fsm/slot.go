// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsm is the pure decision table for Slot and WaitlistEntry
// lifecycle transitions. It never touches the store: callers read a record,
// ask fsm whether an event is allowed from its current state, and if so
// issue the corresponding guarded store UPDATE themselves. This keeps the
// CAS predicate (the actual concurrency control) next to the SQL that
// executes it, while the state machine itself stays storage-agnostic and
// trivially testable.
package fsm

import "github.com/ManuGH/waitlistd/internal/domain/waitlist/model"

// SlotEvent names a Slot lifecycle event.
type SlotEvent string

const (
	SlotEvHold        SlotEvent = "hold"
	SlotEvConfirm     SlotEvent = "confirm"
	SlotEvDecline     SlotEvent = "decline"
	SlotEvExpire      SlotEvent = "expire"
	SlotEvAdminReopen SlotEvent = "admin_reopen"
	SlotEvCancel      SlotEvent = "cancel"
)

// SlotDecision says whether an event is allowed from a given state, and if
// so what the resulting state is. Reason explains a forbidden transition.
type SlotDecision struct {
	Allowed bool
	To      model.SlotStatus
	Reason  string
}

const (
	ReasonAlreadyTerminal   = "already_terminal"
	ReasonNotInExpectedFrom = "not_in_expected_from_state"
)

func allow(to model.SlotStatus) SlotDecision { return SlotDecision{Allowed: true, To: to} }
func deny(reason string) SlotDecision        { return SlotDecision{Allowed: false, Reason: reason} }

// slotDecisionTable defines an explicit decision for every State×Event pair
// named in spec §4.3's transition table. "held" target states for
// admin_reopen are resolved dynamically (selector-dependent), so that row
// maps to SlotOpen here and the caller overrides To when a candidate is
// found — see SlotDecisionFor's doc comment.
var slotDecisionTable = map[model.SlotStatus]map[SlotEvent]SlotDecision{
	model.SlotOpen: {
		SlotEvHold:        allow(model.SlotHeld),
		SlotEvConfirm:     deny(ReasonNotInExpectedFrom),
		SlotEvDecline:     deny(ReasonNotInExpectedFrom),
		SlotEvExpire:      deny(ReasonNotInExpectedFrom),
		SlotEvAdminReopen: allow(model.SlotOpen),
		SlotEvCancel:      allow(model.SlotCanceled),
	},
	model.SlotHeld: {
		SlotEvHold:        deny(ReasonNotInExpectedFrom),
		SlotEvConfirm:     allow(model.SlotBooked),
		SlotEvDecline:     allow(model.SlotOpen),
		SlotEvExpire:      allow(model.SlotOpen),
		SlotEvAdminReopen: deny(ReasonNotInExpectedFrom),
		SlotEvCancel:      allow(model.SlotCanceled),
	},
	model.SlotBooked: {
		SlotEvHold:        deny(ReasonAlreadyTerminal),
		SlotEvConfirm:     deny(ReasonAlreadyTerminal),
		SlotEvDecline:     deny(ReasonAlreadyTerminal),
		SlotEvExpire:      deny(ReasonAlreadyTerminal),
		SlotEvAdminReopen: deny(ReasonAlreadyTerminal),
		SlotEvCancel:      deny(ReasonAlreadyTerminal),
	},
	model.SlotCanceled: {
		SlotEvHold:        deny(ReasonAlreadyTerminal),
		SlotEvConfirm:     deny(ReasonAlreadyTerminal),
		SlotEvDecline:     deny(ReasonAlreadyTerminal),
		SlotEvExpire:      deny(ReasonAlreadyTerminal),
		SlotEvAdminReopen: deny(ReasonAlreadyTerminal),
		SlotEvCancel:      deny(ReasonAlreadyTerminal),
	},
}

// SlotDecisionFor returns the decision for firing ev against a slot
// currently in state `from`. Callers translate an allowed decision into a
// guarded `UPDATE slots SET status = ? WHERE id = ? AND status = ?` keyed on
// `from`; zero rows affected means a concurrent writer already moved the
// slot and the caller should treat it as a precondition failure, never
// silently retry.
func SlotDecisionFor(from model.SlotStatus, ev SlotEvent) SlotDecision {
	events, ok := slotDecisionTable[from]
	if !ok {
		return deny(ReasonNotInExpectedFrom)
	}
	decision, ok := events[ev]
	if !ok {
		return deny(ReasonNotInExpectedFrom)
	}
	return decision
}

// CancelableFrom reports whether a slot in the given state can be canceled;
// spec §4.3 allows cancel from any non-booked, non-already-canceled state.
func CancelableFrom(status model.SlotStatus) bool {
	return status == model.SlotOpen || status == model.SlotHeld
}
