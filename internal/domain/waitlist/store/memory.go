// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/fsm"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

// Memory is an in-process Store used for unit tests. A single mutex
// serializes all operations, which is a stronger guarantee than the CAS
// contract the interface promises (real stores allow concurrent
// transactions to race and let exactly one win), so tests against Memory
// never observe two transitions interleaving inside the store.
type Memory struct {
	mu sync.Mutex

	slots          map[string]model.Slot
	entries        map[string]model.WaitlistEntry
	bookings       map[string]model.Booking
	notifications  map[string]model.Notification
	calendarEvents map[string]model.CalendarEvent
	auditLogs      []model.AuditLog
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		slots:          make(map[string]model.Slot),
		entries:        make(map[string]model.WaitlistEntry),
		bookings:       make(map[string]model.Booking),
		notifications:  make(map[string]model.Notification),
		calendarEvents: make(map[string]model.CalendarEvent),
	}
}

var _ Store = (*Memory)(nil)

func newID() string { return uuid.NewString() }

// CreateSlot inserts a slot, assigning an ID if one was not supplied.
func (m *Memory) CreateSlot(_ context.Context, slot model.Slot) (model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot.ID == "" {
		slot.ID = newID()
	}
	if slot.Status == "" {
		slot.Status = model.SlotOpen
	}
	m.slots[slot.ID] = slot
	return slot, nil
}

func (m *Memory) GetSlot(_ context.Context, tenantID, slotID string) (model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return model.Slot{}, errSlotNotFound(slotID)
	}
	return slot, nil
}

func (m *Memory) HoldSlotForEntry(_ context.Context, tenantID, slotID, entryID string, holdExpiresAt time.Time) (model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return model.Slot{}, errSlotNotFound(slotID)
	}
	decision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvHold)
	if !decision.Allowed {
		return model.Slot{}, errSlotNoLongerAvailable(slotID)
	}

	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return model.Slot{}, errEntryNotFound(entryID)
	}
	entryDecision := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvNotify)
	if !entryDecision.Allowed {
		return model.Slot{}, errEntryNotActive(entryID)
	}

	expiresAt := holdExpiresAt
	slot.Status = decision.To
	slot.HoldExpiresAt = &expiresAt
	slot.HolderEntryID = entryID
	slot.Version++
	m.slots[slotID] = slot

	entry.Status = entryDecision.To
	entry.UpdatedAt = holdExpiresAt
	m.entries[entryID] = entry

	return slot, nil
}

func (m *Memory) ConfirmHold(_ context.Context, tenantID, slotID, entryID string, now time.Time) (ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return ConfirmResult{}, errSlotNotFound(slotID)
	}
	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return ConfirmResult{}, errEntryNotFound(entryID)
	}

	// Idempotent replay: already confirmed for this slot by this entry.
	if entry.Status == model.EntryConfirmed && slot.Status == model.SlotBooked {
		if b, ok := m.findBookingBySlot(slotID); ok && b.WaitlistEntryID == entryID {
			return ConfirmResult{Slot: slot, Entry: entry, Booking: b}, nil
		}
	}

	if slot.Status != model.SlotHeld {
		return ConfirmResult{}, errSlotNoLongerAvailable(slotID)
	}
	if slot.HoldExpiresAt == nil || !slot.HoldExpiresAt.After(now) {
		return ConfirmResult{}, errHoldExpired(slotID)
	}

	slotDecision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvConfirm)
	entryDecision := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvConfirm)
	if !slotDecision.Allowed || !entryDecision.Allowed {
		return ConfirmResult{}, errSlotNoLongerAvailable(slotID)
	}

	slot.Status = slotDecision.To
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	m.slots[slotID] = slot

	entry.Status = entryDecision.To
	entry.UpdatedAt = now
	m.entries[entryID] = entry

	booking := model.Booking{
		ID:              newID(),
		TenantID:        tenantID,
		SlotID:          slotID,
		WaitlistEntryID: entryID,
		CustomerName:    entry.CustomerName,
		CustomerPhone:   entry.Phone,
		CustomerEmail:   entry.Email,
		Status:          model.BookingConfirmed,
		Source:          model.BookingSourceWaitlist,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.bookings[booking.ID] = booking

	var removed []string
	for id, other := range m.entries {
		if id == entryID {
			continue
		}
		if other.TenantID != tenantID || other.Phone != entry.Phone {
			continue
		}
		if other.Status != model.EntryActive {
			continue
		}
		other.Status = model.EntryRemoved
		other.UpdatedAt = now
		m.entries[id] = other
		removed = append(removed, id)
	}
	sort.Strings(removed)

	return ConfirmResult{Slot: slot, Entry: entry, Booking: booking, RemovedOthers: removed}, nil
}

func (m *Memory) findBookingBySlot(slotID string) (model.Booking, bool) {
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status != model.BookingCanceled {
			return b, true
		}
	}
	return model.Booking{}, false
}

// ReleaseHold implements the held->open transition. entryID may be left
// empty, in which case the slot's own HolderEntryID is used instead.
// Replaying a release for an entry the slot has already moved on from
// (re-held for someone else, confirmed, or canceled) is a no-op: it
// returns the slot as-is with released=false rather than an error.
func (m *Memory) ReleaseHold(_ context.Context, tenantID, slotID, entryID string) (model.Slot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return model.Slot{}, false, errSlotNotFound(slotID)
	}
	if slot.Status != model.SlotHeld {
		return slot, false, nil
	}
	if entryID != "" && slot.HolderEntryID != "" && slot.HolderEntryID != entryID {
		return slot, false, nil
	}
	if entryID == "" {
		entryID = slot.HolderEntryID
	}

	decision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvDecline)
	slot.Status = decision.To
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	m.slots[slotID] = slot

	if entry, ok := m.entries[entryID]; ok && entry.TenantID == tenantID {
		if d := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvCascade); d.Allowed {
			entry.Status = d.To
			m.entries[entryID] = entry
		}
	}

	return slot, true, nil
}

func (m *Memory) CancelSlot(_ context.Context, tenantID, slotID, actorID, reason string) (model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return model.Slot{}, errSlotNotFound(slotID)
	}
	if !fsm.CancelableFrom(slot.Status) {
		return model.Slot{}, errSlotNotCancelable(slotID)
	}

	slot.Status = model.SlotCanceled
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	m.slots[slotID] = slot
	return slot, nil
}

func (m *Memory) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Slot
	for _, s := range m.slots {
		if s.Status == model.SlotHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CreateEntry(_ context.Context, entry model.WaitlistEntry) (model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.Status == "" {
		entry.Status = model.EntryActive
	}
	entry.CustomerName = model.NormalizeCustomerName(entry.CustomerName)
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *Memory) GetEntry(_ context.Context, tenantID, entryID string) (model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return model.WaitlistEntry{}, errEntryNotFound(entryID)
	}
	return entry, nil
}

func (m *Memory) RemoveEntry(_ context.Context, tenantID, entryID, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return errEntryNotFound(entryID)
	}
	entry.Status = model.EntryRemoved
	m.entries[entryID] = entry
	return nil
}

func (m *Memory) CountActiveByPhone(_ context.Context, tenantID, phone string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, e := range m.entries {
		if e.TenantID != tenantID || e.Phone != phone {
			continue
		}
		if e.Status == model.EntryActive || e.Status == model.EntryNotified {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListCandidates(_ context.Context, filter CandidateFilter) ([]model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.WaitlistEntry
	for _, e := range m.entries {
		if e.TenantID != filter.TenantID {
			continue
		}
		if e.ServiceID != filter.ServiceID {
			continue
		}
		if e.Status != model.EntryActive {
			continue
		}
		if e.StaffID != "" && e.StaffID != filter.StaffID {
			continue
		}
		if e.EarliestTime.After(filter.StartTime) || e.LatestTime.Before(filter.EndTime) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = newID()
	}
	if n.Status == "" {
		n.Status = model.NotificationPending
	}
	m.notifications[n.ID] = n
	return n, nil
}

func (m *Memory) UpdateNotificationStatus(_ context.Context, tenantID, notificationID string, status model.NotificationStatus, providerMessageID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[notificationID]
	if !ok || n.TenantID != tenantID {
		return errNotificationNotFound(notificationID)
	}
	n.Status = status
	n.ProviderMessageID = providerMessageID
	n.LastError = lastError
	n.Attempts++
	if status == model.NotificationSent || status == model.NotificationDelivered {
		now := time.Now()
		n.SentAt = &now
	}
	m.notifications[notificationID] = n
	return nil
}

func (m *Memory) RecordNotificationResponse(_ context.Context, tenantID, notificationID string, response model.NotificationResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[notificationID]
	if !ok || n.TenantID != tenantID {
		return errNotificationNotFound(notificationID)
	}
	n.Response = response
	m.notifications[notificationID] = n
	return nil
}

func (m *Memory) UpsertCalendarEvent(_ context.Context, ev model.CalendarEvent) (model.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.ID == "" {
		ev.ID = newID()
	}
	m.calendarEvents[ev.ID] = ev
	return ev, nil
}

func (m *Memory) ListCalendarEventsNeedingReconcile(_ context.Context, limit int) ([]model.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.CalendarEvent
	for _, ev := range m.calendarEvents {
		if ev.Status == model.CalendarError {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordAuditLog implements audit.Sink by appending to an in-memory slice.
func (m *Memory) RecordAuditLog(_ context.Context, event audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.auditLogs = append(m.auditLogs, model.AuditLog{
		ID:         newID(),
		ActorType:  model.ActorSystem,
		ActorID:    event.Actor,
		Action:     event.Action,
		ResourceID: event.Resource,
		Metadata:   event.Details,
		CreatedAt:  event.Timestamp,
	})
	return nil
}

// AuditLogs returns a snapshot of recorded audit rows, for test assertions.
func (m *Memory) AuditLogs() []model.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.AuditLog, len(m.auditLogs))
	copy(out, m.auditLogs)
	return out
}
