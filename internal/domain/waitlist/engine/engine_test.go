// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/clock"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/token"
)

type fakeNotifier struct {
	sent []NotificationRequest
	fail bool
}

func (f *fakeNotifier) Notify(_ context.Context, req NotificationRequest) error {
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, req)
	return nil
}

type fakeCalendar struct {
	created int
	deleted int
	fail    bool
}

func (f *fakeCalendar) EnqueueCreate(_ context.Context, _ string, _ model.Slot, _ model.Booking) error {
	if f.fail {
		return assert.AnError
	}
	f.created++
	return nil
}

func (f *fakeCalendar) EnqueueDelete(_ context.Context, _ string, _ model.Slot) error {
	f.deleted++
	return nil
}

const testKey = "test-signing-key-0123456789"

func newTestEngine(t *testing.T, now time.Time) (*Engine, *store.Memory, *fakeNotifier) {
	t.Helper()
	mem := store.NewMemory()
	fc := clock.NewFake(now)
	codec := token.NewCodec([]byte(testKey), 20*time.Minute)
	logger := audit.NewLogger(mem)
	notifier := &fakeNotifier{}
	cal := &fakeCalendar{}

	eng := New(mem, fc, codec, logger, notifier, cal, Config{
		HoldTTL:         10 * time.Minute,
		ConfirmTokenTTL: 20 * time.Minute,
		CascadeFanoutK:  3,
		TickerPageSize:  10,
	})
	return eng, mem, notifier
}

func seedOpenSlotAndEntry(t *testing.T, mem *store.Memory, now time.Time) (model.Slot, model.WaitlistEntry) {
	t.Helper()
	ctx := context.Background()
	slot, err := mem.CreateSlot(ctx, model.Slot{
		TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
		StartTime: now.Add(9 * time.Hour), EndTime: now.Add(10 * time.Hour),
		Status: model.SlotOpen,
	})
	require.NoError(t, err)

	entry, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "t1", ServiceID: "svc-1", Phone: "+1555", CustomerName: "Alice",
		EarliestTime: now, LatestTime: now.Add(24 * time.Hour), CreatedAt: now,
	})
	require.NoError(t, err)
	return slot, entry
}

func TestHoldTopCandidate_HoldsAndNotifies(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, notifier := newTestEngine(t, now)
	slot, entry := seedOpenSlotAndEntry(t, mem, now)

	held, winner, ok, err := eng.HoldTopCandidate(context.Background(), "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.SlotHeld, held.Status)
	assert.Equal(t, entry.ID, winner.ID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, entry.ID, notifier.sent[0].Entry.ID)
}

func TestHoldTopCandidate_NoCandidates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	ctx := context.Background()
	slot, err := mem.CreateSlot(ctx, model.Slot{
		TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
		StartTime: now.Add(9 * time.Hour), EndTime: now.Add(10 * time.Hour),
		Status: model.SlotOpen,
	})
	require.NoError(t, err)

	_, _, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfirm_TransitionsSlotAndReturnsBooking(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	slot, _ := seedOpenSlotAndEntry(t, mem, now)
	ctx := context.Background()

	_, winner, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)

	confirmTok, err := eng.codec.Issue("t1", slot.ID, winner.ID, model.TokenConfirm, now)
	require.NoError(t, err)

	result, err := eng.Confirm(ctx, "t1", confirmTok, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, result.Slot.Status)
	assert.Equal(t, model.BookingConfirmed, result.Booking.Status)
}

func TestConfirm_ReplayReturnsSameBooking(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	slot, _ := seedOpenSlotAndEntry(t, mem, now)
	ctx := context.Background()

	_, winner, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)

	confirmTok, err := eng.codec.Issue("t1", slot.ID, winner.ID, model.TokenConfirm, now)
	require.NoError(t, err)

	first, err := eng.Confirm(ctx, "t1", confirmTok, now.Add(time.Minute))
	require.NoError(t, err)
	second, err := eng.Confirm(ctx, "t1", confirmTok, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
}

func TestConfirm_RejectsInvalidToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, _, _ := newTestEngine(t, now)

	_, err := eng.Confirm(context.Background(), "t1", "garbage", now)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidToken))
}

func TestDecline_ReleasesAndCascadesToNextCandidate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, notifier := newTestEngine(t, now)
	ctx := context.Background()

	slot, first := seedOpenSlotAndEntry(t, mem, now)
	second, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "t1", ServiceID: "svc-1", Phone: "+1999", CustomerName: "Bob",
		EarliestTime: now, LatestTime: now.Add(24 * time.Hour), CreatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	held, winner, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.ID, winner.ID)

	declineTok, err := eng.codec.Issue("t1", held.ID, winner.ID, model.TokenDecline, now)
	require.NoError(t, err)

	result, err := eng.Decline(ctx, "t1", declineTok, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, result.Cascade.Held)
	assert.Equal(t, second.ID, result.Cascade.Entry.ID)
	assert.Len(t, notifier.sent, 2) // first hold + cascade hold

	// Replaying first's decline token after cascade re-held the slot for
	// second must be a no-op: success, empty cascade, slot untouched.
	replay, err := eng.Decline(ctx, "t1", declineTok, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, replay.Cascade.Held)
	assert.Len(t, notifier.sent, 2) // no additional hold/notify from the replay

	final, err := mem.GetSlot(ctx, "t1", slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, final.Status)
	assert.Equal(t, second.ID, final.HolderEntryID)
}

func TestTickOnce_ReleasesExpiredHoldAndCascades(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, notifier := newTestEngine(t, now)
	ctx := context.Background()

	slot, first := seedOpenSlotAndEntry(t, mem, now)
	second, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "t1", ServiceID: "svc-1", Phone: "+1999", CustomerName: "Bob",
		EarliestTime: now, LatestTime: now.Add(24 * time.Hour), CreatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	_, winner, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.ID, winner.ID)

	fc := eng.clock.(*clock.Fake)
	fc.Advance(11 * time.Minute)

	result := eng.TickOnce(ctx)
	assert.Equal(t, 1, result.ScannedSlots)
	assert.Equal(t, 1, result.ReleasedHolds)
	assert.Equal(t, 1, result.CascadesStarted)
	assert.Len(t, notifier.sent, 2)

	reheld, err := mem.GetSlot(ctx, "t1", slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, reheld.Status)
	assert.Equal(t, second.ID, reheld.HolderEntryID)
}

// TestTickOnce_ProcessesMultipleExpiredSlotsConcurrently exercises the
// errgroup-bounded batch path with more slots than tickerBatchConcurrency,
// verifying every distinct slot is released independently in one pass.
func TestTickOnce_ProcessesMultipleExpiredSlotsConcurrently(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	ctx := context.Background()

	const slotCount = tickerBatchConcurrency*2 + 3
	slotIDs := make([]string, slotCount)
	entryIDs := make([]string, slotCount)
	for i := 0; i < slotCount; i++ {
		slot, err := mem.CreateSlot(ctx, model.Slot{
			TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
			StartTime: now.Add(9 * time.Hour), EndTime: now.Add(10 * time.Hour),
			Status: model.SlotOpen,
		})
		require.NoError(t, err)
		entry, err := mem.CreateEntry(ctx, model.WaitlistEntry{
			TenantID: "t1", ServiceID: "svc-1", Phone: fmt.Sprintf("+1%03d", i), CustomerName: "Alice",
			EarliestTime: now, LatestTime: now.Add(24 * time.Hour), CreatedAt: now,
		})
		require.NoError(t, err)

		_, _, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
		require.NoError(t, err)
		require.True(t, ok)
		slotIDs[i] = slot.ID
		entryIDs[i] = entry.ID
	}

	fc := eng.clock.(*clock.Fake)
	fc.Advance(11 * time.Minute)

	result := eng.TickOnce(ctx)
	assert.Equal(t, slotCount, result.ScannedSlots)
	assert.Equal(t, slotCount, result.ReleasedHolds)
	assert.Equal(t, 0, result.Errors)

	// Each slot has only its own (now-expired) entry as a candidate: cascade
	// returns that same entry to active and immediately re-holds it for the
	// same slot, since there is nobody else waiting. What this test verifies
	// is that every slot was processed independently in the errgroup batch,
	// not left untouched or cross-wired to another slot's entry.
	for i, id := range slotIDs {
		s, err := mem.GetSlot(ctx, "t1", id)
		require.NoError(t, err)
		assert.Equal(t, model.SlotHeld, s.Status, "slot %s should have been re-held by its own entry", id)
		assert.Equal(t, entryIDs[i], s.HolderEntryID, "slot %s should be held by its own entry, not another slot's", id)
	}
}

func TestCascade_SkipsCandidateThatLostRace(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	ctx := context.Background()

	slot, top := seedOpenSlotAndEntry(t, mem, now)

	// Top candidate's hold is taken by someone else just before cascade runs
	// (simulated by removing its active status).
	require.NoError(t, mem.RemoveEntry(ctx, "t1", top.ID, "system", "test"))

	second, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		TenantID: "t1", ServiceID: "svc-1", Phone: "+1999", CustomerName: "Bob",
		EarliestTime: now, LatestTime: now.Add(24 * time.Hour), CreatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	outcome, err := eng.Cascade(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, outcome.Held)
	assert.Equal(t, second.ID, outcome.Entry.ID)
}

func TestOpenSlot_HoldsTopCandidateAndReturnsRankedList(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, notifier := newTestEngine(t, now)
	slot, entry := seedOpenSlotAndEntry(t, mem, now)

	result, err := eng.OpenSlot(context.Background(), "t1", slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, result.Slot.Status)
	require.Len(t, result.Candidates, 1)
	require.NotNil(t, result.TopCandidate)
	assert.Equal(t, entry.ID, result.TopCandidate.ID)
	assert.True(t, result.NotificationEnqueued)
	assert.Len(t, notifier.sent, 1)
}

func TestOpenSlot_NoCandidatesLeavesSlotOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	ctx := context.Background()
	slot, err := mem.CreateSlot(ctx, model.Slot{
		TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
		StartTime: now.Add(9 * time.Hour), EndTime: now.Add(10 * time.Hour),
		Status: model.SlotOpen,
	})
	require.NoError(t, err)

	result, err := eng.OpenSlot(ctx, "t1", slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, result.Slot.Status)
	assert.Empty(t, result.Candidates)
	assert.Nil(t, result.TopCandidate)
	assert.False(t, result.NotificationEnqueued)
}

func TestCancel_ClearsHoldAndEnqueuesCalendarDelete(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	slot, _ := seedOpenSlotAndEntry(t, mem, now)
	ctx := context.Background()

	_, _, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := eng.Cancel(ctx, "t1", slot.ID, "admin-1", "staff_unavailable")
	require.NoError(t, err)
	assert.Equal(t, model.SlotCanceled, result.Slot.Status)

	cal := eng.calendar.(*fakeCalendar)
	assert.Equal(t, 1, cal.deleted)
}

func TestHoldTopCandidateWithTTL_OverridesConfiguredTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	slot, _ := seedOpenSlotAndEntry(t, mem, now)

	held, _, ok, err := eng.HoldTopCandidateWithTTL(context.Background(), "t1", slot.ID, 90*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, held.HoldExpiresAt)
	assert.Equal(t, now.Add(90*time.Minute), *held.HoldExpiresAt)
}

func TestCancel_RejectsAlreadyBookedSlot(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mem, _ := newTestEngine(t, now)
	slot, winner := seedOpenSlotAndEntry(t, mem, now)
	ctx := context.Background()

	_, _, ok, err := eng.HoldTopCandidate(ctx, "t1", slot.ID)
	require.NoError(t, err)
	require.True(t, ok)

	confirmTok, err := eng.codec.Issue("t1", slot.ID, winner.ID, model.TokenConfirm, now)
	require.NoError(t, err)
	_, err = eng.Confirm(ctx, "t1", confirmTok, now.Add(time.Minute))
	require.NoError(t, err)

	_, err = eng.Cancel(ctx, "t1", slot.ID, "admin-1", "test")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.PreconditionFailed))
}
