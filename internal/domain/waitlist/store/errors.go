// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import "github.com/ManuGH/waitlistd/internal/core/errkind"

// Shared error constructors so every Store implementation classifies the
// same failure the same way.

func errSlotNotFound(slotID string) error {
	return errkind.New(errkind.NotFound, "slot not found: "+slotID)
}

func errEntryNotFound(entryID string) error {
	return errkind.New(errkind.NotFound, "waitlist entry not found: "+entryID)
}

func errSlotNoLongerAvailable(slotID string) error {
	return errkind.WithDetail(errkind.DetailSlotNoLongerAvailable, "slot no longer available for this transition: "+slotID)
}

func errHoldExpired(slotID string) error {
	return errkind.WithDetail(errkind.DetailHoldExpired, "hold already expired: "+slotID)
}

func errEntryNotActive(entryID string) error {
	return errkind.WithDetail(errkind.DetailEntryNotActive, "entry is not active: "+entryID)
}

func errSlotNotCancelable(slotID string) error {
	return errkind.New(errkind.PreconditionFailed, "slot cannot be canceled from its current state: "+slotID)
}

func errNotificationNotFound(notificationID string) error {
	return errkind.New(errkind.NotFound, "notification not found: "+notificationID)
}
