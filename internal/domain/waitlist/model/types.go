// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package model defines the waitlist engine's core entities. Every entity
// carries a TenantID; every store query filters on it.
package model

import "time"

// Tenant is the top-level scoping boundary: every other entity belongs to
// exactly one tenant and every store operation is tenant-filtered.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Staff is a bookable provider within a tenant.
type Staff struct {
	ID       string
	TenantID string
	Name     string
}

// Service describes a bookable appointment type and its default duration.
type Service struct {
	ID       string
	TenantID string
	Name     string
	Duration time.Duration
	Price    int64 // minor currency units (cents)
}

// Slot is a bookable appointment window owned by one staff member.
//
// Invariants: Start < End; hold_expires_at and HolderEntryID are set if and
// only if Status == SlotHeld; a slot must not overlap any non-canceled slot
// of the same staff member at creation time.
type Slot struct {
	ID            string
	TenantID      string
	StaffID       string
	ServiceID     string
	StartTime     time.Time
	EndTime       time.Time
	Status        SlotStatus
	HoldExpiresAt *time.Time
	HolderEntryID string // entry currently holding this slot; empty unless Status == SlotHeld
	Version       int64  // optimistic concurrency token, bumped on every transition
}

// Duration returns the slot's booked length.
func (s Slot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// WaitlistEntry is a customer's standing request to be matched against a
// future Slot.
//
// Invariants: EarliestTime < LatestTime; Status only moves forward along
// active -> notified -> {active, confirmed, removed}; a given phone number
// may hold at most MaxActiveEntriesPerPhone simultaneously active/notified
// entries per tenant, checked against store.Store.CountActiveByPhone and
// enforced on insert by engine.Engine.CreateEntry.
type WaitlistEntry struct {
	ID            string
	TenantID      string
	CustomerName  string
	Phone         string
	Email         string
	ServiceID     string
	StaffID       string // empty means no staff preference
	EarliestTime  time.Time
	LatestTime    time.Time
	VIP           bool
	PriorityScore int
	Status        EntryStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasStaffPreference reports whether the entry names a preferred staff member.
func (e WaitlistEntry) HasStaffPreference() bool {
	return e.StaffID != ""
}

// Booking is the confirmed outcome of a Slot being filled.
//
// Invariants: SlotID maps to at most one non-canceled Booking.
type Booking struct {
	ID              string
	TenantID        string
	SlotID          string
	WaitlistEntryID string // empty for direct/walk-in bookings
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	Status          BookingStatus
	Source          BookingSource
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Notification is an outbound confirm/decline message sent to a candidate.
//
// Invariants: TokenHash values are single-use and scoped to exactly one
// (EntryID, SlotID, action) triple.
type Notification struct {
	ID                string
	TenantID          string
	EntryID           string
	SlotID            string
	Channel           NotificationChannel
	Status            NotificationStatus
	ConfirmTokenHash  string
	DeclineTokenHash  string
	ProviderMessageID string
	LastError         string
	Attempts          int
	SentAt            *time.Time
	Response          NotificationResponse
	CreatedAt         time.Time
}

// CalendarEvent is a best-effort external-calendar mirror of a Slot.
type CalendarEvent struct {
	ID              string
	TenantID        string
	SlotID          string
	StaffID         string
	ExternalEventID string
	Status          CalendarEventStatus
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AuditLog is an append-only record of a state-changing action.
type AuditLog struct {
	ID           string
	TenantID     string
	ActorType    ActorType
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]string
	CreatedAt    time.Time
}
