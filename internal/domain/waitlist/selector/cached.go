// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/waitlistd/internal/cache"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/priority"
)

// candidateCacheTTL bounds how stale a served ranking can be if Invalidate
// is ever missed; normal operation always invalidates explicitly.
const candidateCacheTTL = 30 * time.Second

// CachingSelector wraps a Selector with a short-TTL candidate-ranking cache
// (SPEC_FULL.md §3). Re-ranking a slot with dozens of waitlist entries on
// every Hold Ticker tick is wasted work when nothing has changed between
// ticks; the cache is invalidated explicitly on any waitlist write rather
// than relying on TTL alone, so a stale ranking is never handed to the
// Cascade Protocol.
type CachingSelector struct {
	inner *Selector
	cache cache.Cache
}

// NewCaching wraps sel with c, caching ranked candidate lists.
func NewCaching(sel *Selector, c cache.Cache) *CachingSelector {
	return &CachingSelector{inner: sel, cache: c}
}

func cacheKey(slot model.Slot) string {
	return fmt.Sprintf("candidates:%s:%s:%s:%s", slot.TenantID, slot.ServiceID, slot.StaffID, slot.ID)
}

// Candidates returns the ranked candidate list for slot, serving from cache
// when present and falling through to the underlying Selector on a miss.
func (c *CachingSelector) Candidates(ctx context.Context, slot model.Slot) ([]priority.Ranked, error) {
	key := cacheKey(slot)
	if v, ok := c.cache.Get(key); ok {
		if ranked, ok := v.([]priority.Ranked); ok {
			return ranked, nil
		}
	}

	ranked, err := c.inner.Candidates(ctx, slot)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, ranked, candidateCacheTTL)
	return ranked, nil
}

// Top returns the single best candidate, via the cached ranking.
func (c *CachingSelector) Top(ctx context.Context, slot model.Slot) (model.WaitlistEntry, bool, error) {
	ranked, err := c.Candidates(ctx, slot)
	if err != nil {
		return model.WaitlistEntry{}, false, err
	}
	if len(ranked) == 0 {
		return model.WaitlistEntry{}, false, nil
	}
	return ranked[0].Entry, true, nil
}

// Invalidate drops the cached ranking for slot. The engine calls this after
// any write that could change who is eligible or how they rank (a new
// waitlist entry, a cancellation, a hold, a release) so the next
// Candidates call always re-ranks from the store.
func (c *CachingSelector) Invalidate(slot model.Slot) {
	c.cache.Delete(cacheKey(slot))
}
