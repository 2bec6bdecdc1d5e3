// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/metrics"
)

// CreateEntry implements spec §3/§6's waitlist-insert invariant: a phone
// number may hold at most cfg.MaxActiveEntriesPerPhone simultaneously
// active/notified entries per tenant. The cap is checked and the row
// inserted as two separate store calls rather than one guarded statement,
// so Store stays a plain CRUD port with no engine config threaded into it.
// This leaves a window between the check and the insert in which two
// concurrent inserts for the same phone can both pass the check.
func (e *Engine) CreateEntry(ctx context.Context, entry model.WaitlistEntry) (model.WaitlistEntry, error) {
	active, err := e.store.CountActiveByPhone(ctx, entry.TenantID, entry.Phone)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	if active >= e.cfg.MaxActiveEntriesPerPhone {
		metrics.RecordInvariantViolation("max_active_entries_per_phone")
		return model.WaitlistEntry{}, errkind.New(errkind.Conflict,
			fmt.Sprintf("phone already has %d active waitlist entries, max is %d", active, e.cfg.MaxActiveEntriesPerPhone))
	}

	created, err := e.store.CreateEntry(ctx, entry)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	return created, nil
}
