// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/priority"
)

func TestNewSlotDTO(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	expiresAt := now.Add(15 * time.Minute)

	slot := model.Slot{
		ID: "slot-1", TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
		StartTime: now, EndTime: now.Add(time.Hour),
		Status:        model.SlotHeld,
		HoldExpiresAt: &expiresAt,
		HolderEntryID: "entry-1",
	}

	got := newSlotDTO(slot)
	want := slotDTO{
		ID: "slot-1", TenantID: "t1", StaffID: "staff-1", ServiceID: "svc-1",
		StartTime: now, EndTime: now.Add(time.Hour),
		Status:        "held",
		HoldExpiresAt: &expiresAt,
		HolderEntryID: "entry-1",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("newSlotDTO() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewOpenSlotResponse(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := model.Slot{ID: "slot-1", TenantID: "t1", ServiceID: "svc-1", StartTime: now, EndTime: now.Add(time.Hour), Status: model.SlotOpen}
	entry := model.WaitlistEntry{ID: "entry-1", TenantID: "t1", CustomerName: "Ada", Phone: "+15550000", ServiceID: "svc-1", Status: model.EntryActive}

	result := engine.OpenSlotResult{
		Slot:                 slot,
		Candidates:           []priority.Ranked{{Entry: entry, Score: 42}},
		TopCandidate:         &entry,
		NotificationEnqueued: true,
	}

	got := newOpenSlotResponse(result)
	want := openSlotResponse{
		Slot: newSlotDTO(slot),
		Candidates: []rankedCandidateDTO{
			{Entry: newWaitlistEntryDTO(entry), Score: 42},
		},
		TopCandidate:         func() *waitlistEntryDTO { d := newWaitlistEntryDTO(entry); return &d }(),
		NotificationEnqueued: true,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("newOpenSlotResponse() mismatch (-want +got):\n%s", diff)
	}
}
