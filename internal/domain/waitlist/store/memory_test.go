// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

func newTestSlot(m *Memory, t *testing.T, status model.SlotStatus) model.Slot {
	t.Helper()
	slot, err := m.CreateSlot(context.Background(), model.Slot{
		TenantID:  "tenant-1",
		StaffID:   "staff-1",
		ServiceID: "svc-1",
		StartTime: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:    status,
	})
	require.NoError(t, err)
	return slot
}

func newTestEntry(m *Memory, t *testing.T, phone string) model.WaitlistEntry {
	t.Helper()
	entry, err := m.CreateEntry(context.Background(), model.WaitlistEntry{
		TenantID:     "tenant-1",
		CustomerName: "Alice",
		Phone:        phone,
		ServiceID:    "svc-1",
		EarliestTime: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		LatestTime:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	return entry
}

func TestMemory_HoldSlotForEntry_Success(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")

	expires := time.Now().Add(10 * time.Minute)
	held, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, expires)
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, held.Status)
	require.NotNil(t, held.HoldExpiresAt)
	assert.True(t, held.HoldExpiresAt.Equal(expires))

	got, err := m.GetEntry(ctx, "tenant-1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryNotified, got.Status)
}

func TestMemory_HoldSlotForEntry_RejectsNonOpenSlot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotBooked)
	entry := newTestEntry(m, t, "+1555")

	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, time.Now().Add(time.Minute))
	require.Error(t, err)
	kind, ok := errkind.Classify(err)
	require.True(t, ok)
	assert.Equal(t, errkind.PreconditionFailed, kind)
}

func TestMemory_ConfirmHold_CreatesBookingAndDedupesPhone(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")
	other := newTestEntry(m, t, "+1555") // same phone, separate entry, still active

	now := time.Now()
	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, now.Add(10*time.Minute))
	require.NoError(t, err)

	result, err := m.ConfirmHold(ctx, "tenant-1", slot.ID, entry.ID, now)
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, result.Slot.Status)
	assert.Equal(t, model.EntryConfirmed, result.Entry.Status)
	assert.Equal(t, model.BookingSourceWaitlist, result.Booking.Source)
	assert.Contains(t, result.RemovedOthers, other.ID)

	gotOther, err := m.GetEntry(ctx, "tenant-1", other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryRemoved, gotOther.Status)
}

func TestMemory_ConfirmHold_RejectsExpiredHold(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")

	now := time.Now()
	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, now.Add(time.Minute))
	require.NoError(t, err)

	_, err = m.ConfirmHold(ctx, "tenant-1", slot.ID, entry.ID, now.Add(2*time.Minute))
	require.Error(t, err)
	assert.Equal(t, errkind.DetailHoldExpired, errkind.ClassifyDetail(err))
}

func TestMemory_ConfirmHold_IsIdempotentOnReplay(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")

	now := time.Now()
	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, now.Add(10*time.Minute))
	require.NoError(t, err)

	first, err := m.ConfirmHold(ctx, "tenant-1", slot.ID, entry.ID, now)
	require.NoError(t, err)

	second, err := m.ConfirmHold(ctx, "tenant-1", slot.ID, entry.ID, now)
	require.NoError(t, err)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
}

func TestMemory_ReleaseHold_ReturnsSlotOpenAndEntryActive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")

	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)

	released, didRelease, err := m.ReleaseHold(ctx, "tenant-1", slot.ID, entry.ID)
	require.NoError(t, err)
	require.True(t, didRelease)
	assert.Equal(t, model.SlotOpen, released.Status)
	assert.Nil(t, released.HoldExpiresAt)

	gotEntry, err := m.GetEntry(ctx, "tenant-1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryActive, gotEntry.Status)
}

func TestMemory_ReleaseHold_ReplayAfterCascadeIsNoop(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry1 := newTestEntry(m, t, "+1555")
	entry2 := newTestEntry(m, t, "+1556")

	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry1.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)

	// entry1's hold is declined, then the slot is re-held for entry2 by
	// cascade, before entry1's decline token is replayed.
	_, didRelease, err := m.ReleaseHold(ctx, "tenant-1", slot.ID, entry1.ID)
	require.NoError(t, err)
	require.True(t, didRelease)

	_, err = m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry2.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)

	replayed, didRelease, err := m.ReleaseHold(ctx, "tenant-1", slot.ID, entry1.ID)
	require.NoError(t, err)
	assert.False(t, didRelease)
	assert.Equal(t, model.SlotHeld, replayed.Status)
	assert.Equal(t, entry2.ID, replayed.HolderEntryID)
}

func TestMemory_CancelSlot_RejectsBooked(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotBooked)

	_, err := m.CancelSlot(ctx, "tenant-1", slot.ID, "staff-1", "no longer needed")
	require.Error(t, err)
}

func TestMemory_ListExpiredHolds(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	slot := newTestSlot(m, t, model.SlotOpen)
	entry := newTestEntry(m, t, "+1555")

	past := time.Now().Add(-time.Minute)
	_, err := m.HoldSlotForEntry(ctx, "tenant-1", slot.ID, entry.ID, past)
	require.NoError(t, err)

	expired, err := m.ListExpiredHolds(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, slot.ID, expired[0].ID)
}

func TestMemory_CountActiveByPhone(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	newTestEntry(m, t, "+1555")
	newTestEntry(m, t, "+1555")
	newTestEntry(m, t, "+1999")

	count, err := m.CountActiveByPhone(ctx, "tenant-1", "+1555")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemory_ListCandidates_FiltersByServiceStaffAndWindow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	match := newTestEntry(m, t, "+1555")

	wrongService, _ := m.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "tenant-1", ServiceID: "svc-2", Phone: "+1777",
		EarliestTime: match.EarliestTime, LatestTime: match.LatestTime, Status: model.EntryActive,
	})
	_ = wrongService

	narrowWindow, _ := m.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "tenant-1", ServiceID: "svc-1", Phone: "+1888",
		EarliestTime: time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
		LatestTime:   time.Date(2026, 1, 1, 9, 45, 0, 0, time.UTC),
		Status:       model.EntryActive,
	})
	_ = narrowWindow

	candidates, err := m.ListCandidates(ctx, CandidateFilter{
		TenantID:  "tenant-1",
		ServiceID: "svc-1",
		StaffID:   "staff-1",
		StartTime: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, match.ID, candidates[0].ID)
}

func TestMemory_RecordAuditLog(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.RecordAuditLog(ctx, audit.Event{
		Type:     audit.EventSlotOpened,
		Actor:    "staff-1",
		Action:   "opened slot",
		Resource: "slot-1",
		Result:   "success",
	})
	require.NoError(t, err)
	assert.Len(t, m.AuditLogs(), 1)
}
