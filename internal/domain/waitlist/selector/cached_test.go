// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/cache"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
)

func TestCachingSelector_CachesAcrossCalls(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Now()

	slot, err := mem.CreateSlot(ctx, model.Slot{TenantID: "t1", ServiceID: "svc1", StaffID: "staff1", StartTime: now, EndTime: now.Add(time.Hour), Status: model.SlotOpen})
	require.NoError(t, err)
	_, err = mem.CreateEntry(ctx, model.WaitlistEntry{TenantID: "t1", ServiceID: "svc1", Phone: "+15550001", Status: model.EntryActive, CreatedAt: now, EarliestTime: now.Add(-time.Hour), LatestTime: now.Add(2 * time.Hour)})
	require.NoError(t, err)

	sel := New(mem, nil)
	cs := NewCaching(sel, cache.NewMemoryCache(0))

	first, err := cs.Candidates(ctx, slot)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second entry added after the first ranking is cached must not
	// appear until Invalidate is called.
	_, err = mem.CreateEntry(ctx, model.WaitlistEntry{TenantID: "t1", ServiceID: "svc1", Phone: "+15550002", Status: model.EntryActive, CreatedAt: now, EarliestTime: now.Add(-time.Hour), LatestTime: now.Add(2 * time.Hour)})
	require.NoError(t, err)

	cached, err := cs.Candidates(ctx, slot)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "stale cached ranking served until invalidated")

	cs.Invalidate(slot)

	fresh, err := cs.Candidates(ctx, slot)
	require.NoError(t, err)
	assert.Len(t, fresh, 2, "ranking recomputed after invalidate")
}

func TestCachingSelector_Top_ReturnsBestCached(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Now()

	slot, err := mem.CreateSlot(ctx, model.Slot{TenantID: "t1", ServiceID: "svc1", StaffID: "staff1", StartTime: now, EndTime: now.Add(time.Hour), Status: model.SlotOpen})
	require.NoError(t, err)

	sel := New(mem, nil)
	cs := NewCaching(sel, cache.NewMemoryCache(0))

	_, found, err := cs.Top(ctx, slot)
	require.NoError(t, err)
	assert.False(t, found)
}
