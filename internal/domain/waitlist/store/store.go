// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store defines the waitlist engine's storage port: every mutating
// method is a CAS-guarded atomic transition (an `UPDATE ... WHERE status =
// <expected>` executed inside a single transaction together with its
// dependent writes). There are no in-memory locks — callers across
// processes coordinate purely through these guarded updates, and a zero
// rows-affected outcome is surfaced as a precondition-failed error, never
// retried silently.
package store

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

// CandidateFilter selects WaitlistEntry rows eligible for a given open slot,
// per spec §4.2: same tenant, matching service, null-or-equal staff
// preference, time-window containment, and status = active.
type CandidateFilter struct {
	TenantID  string
	ServiceID string
	StaffID   string // slot's staff; entries with StaffID == "" also match
	StartTime time.Time
	EndTime   time.Time
}

// ConfirmResult carries the booking created by a successful confirm
// transition, plus the other-active-entries it removed for the same phone.
type ConfirmResult struct {
	Slot          model.Slot
	Entry         model.WaitlistEntry
	Booking       model.Booking
	RemovedOthers []string // entry IDs set to removed by the same-phone dedupe rule
}

// Store is the waitlist engine's storage port. Implementations: an
// in-memory store for fast unit tests and a modernc.org/sqlite-backed store
// for production, tested against a temp-file database.
type Store interface {
	audit.Sink

	// Slot lifecycle

	CreateSlot(ctx context.Context, slot model.Slot) (model.Slot, error)
	GetSlot(ctx context.Context, tenantID, slotID string) (model.Slot, error)

	// HoldSlotForEntry implements spec §4.3's open->held transition: CAS on
	// status=open, sets hold_expires_at, and moves the entry to notified in
	// the same transaction.
	HoldSlotForEntry(ctx context.Context, tenantID, slotID, entryID string, holdExpiresAt time.Time) (model.Slot, error)

	// ConfirmHold implements §4.4's confirm transaction: re-reads the slot,
	// requires status=held and hold_expires_at > now, CAS-updates to
	// booked, moves the entry to confirmed, inserts a Booking, and removes
	// other active entries for the same phone. Idempotent: if the entry is
	// already confirmed for this slot, returns the existing booking instead
	// of a precondition-failed error.
	ConfirmHold(ctx context.Context, tenantID, slotID, entryID string, now time.Time) (ConfirmResult, error)

	// ReleaseHold implements the held->open transition shared by decline
	// and expire (§4.3): CAS on status=held, clears hold_expires_at, and
	// returns the entry to active. entryID may be left empty for the Hold
	// Ticker's expiry path, which resolves the current holder from the
	// slot itself instead of a signed token. Idempotent on replay: if the
	// slot has already moved on (re-held for a different entry, confirmed,
	// or canceled) by the time this lands, released is false and the
	// current slot is returned with no error — a decline or expiry
	// replayed after cascade is a no-op, not a precondition failure.
	ReleaseHold(ctx context.Context, tenantID, slotID, entryID string) (slot model.Slot, released bool, err error)

	// CancelSlot implements the */cancel transition: allowed from open or
	// held only.
	CancelSlot(ctx context.Context, tenantID, slotID, actorID, reason string) (model.Slot, error)

	// ListExpiredHolds returns a bounded page of slots with status=held and
	// hold_expires_at <= now, for the Hold Ticker.
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Slot, error)

	// Waitlist entries

	CreateEntry(ctx context.Context, entry model.WaitlistEntry) (model.WaitlistEntry, error)
	GetEntry(ctx context.Context, tenantID, entryID string) (model.WaitlistEntry, error)
	RemoveEntry(ctx context.Context, tenantID, entryID, actorID, reason string) error
	CountActiveByPhone(ctx context.Context, tenantID, phone string) (int, error)

	// ListCandidates returns entries eligible for a slot matching filter,
	// with status=active, read-only (spec §4.2). Ordering is NOT applied
	// here — ranking is the priority package's job, run on the result.
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.WaitlistEntry, error)

	// Notifications

	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	UpdateNotificationStatus(ctx context.Context, tenantID, notificationID string, status model.NotificationStatus, providerMessageID, lastError string) error
	RecordNotificationResponse(ctx context.Context, tenantID, notificationID string, response model.NotificationResponse) error

	// Calendar

	UpsertCalendarEvent(ctx context.Context, ev model.CalendarEvent) (model.CalendarEvent, error)
	ListCalendarEventsNeedingReconcile(ctx context.Context, limit int) ([]model.CalendarEvent, error)
}
