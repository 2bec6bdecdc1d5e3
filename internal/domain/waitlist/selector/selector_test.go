// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/clock"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
)

func TestSelector_Candidates_EmptyIsNotError(t *testing.T) {
	mem := store.NewMemory()
	sel := New(mem, clock.NewFake(time.Now()))

	slot := model.Slot{TenantID: "t1", ServiceID: "svc-1", StaffID: "staff-1",
		StartTime: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}

	ranked, err := sel.Candidates(context.Background(), slot)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestSelector_Top_PicksHighestRanked(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	low, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		ID: "low", TenantID: "t1", ServiceID: "svc-1", Phone: "+1",
		EarliestTime: now, LatestTime: now.Add(4 * time.Hour), CreatedAt: now,
	})
	require.NoError(t, err)

	vip, err := mem.CreateEntry(ctx, model.WaitlistEntry{
		ID: "vip", TenantID: "t1", ServiceID: "svc-1", Phone: "+2",
		EarliestTime: now, LatestTime: now.Add(4 * time.Hour), CreatedAt: now, VIP: true,
	})
	require.NoError(t, err)
	_ = low

	sel := New(mem, clock.NewFake(now))
	slot := model.Slot{TenantID: "t1", ServiceID: "svc-1",
		StartTime: now.Add(1 * time.Hour), EndTime: now.Add(2 * time.Hour)}

	top, ok, err := sel.Top(ctx, slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vip.ID, top.ID)
}
