// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"time"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/priority"
)

// slotDTO is the wire representation of a model.Slot.
type slotDTO struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	StaffID       string     `json:"staff_id"`
	ServiceID     string     `json:"service_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	HolderEntryID string     `json:"holder_entry_id,omitempty"`
}

func newSlotDTO(s model.Slot) slotDTO {
	return slotDTO{
		ID:            s.ID,
		TenantID:      s.TenantID,
		StaffID:       s.StaffID,
		ServiceID:     s.ServiceID,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Status:        string(s.Status),
		HoldExpiresAt: s.HoldExpiresAt,
		HolderEntryID: s.HolderEntryID,
	}
}

// waitlistEntryDTO is the wire representation of a model.WaitlistEntry.
type waitlistEntryDTO struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id,omitempty"`
	VIP          bool   `json:"vip"`
	Status       string `json:"status"`
}

func newWaitlistEntryDTO(e model.WaitlistEntry) waitlistEntryDTO {
	return waitlistEntryDTO{
		ID:           e.ID,
		CustomerName: e.CustomerName,
		Phone:        e.Phone,
		ServiceID:    e.ServiceID,
		StaffID:      e.StaffID,
		VIP:          e.VIP,
		Status:       string(e.Status),
	}
}

// rankedCandidateDTO pairs a waitlist entry with its computed match score.
type rankedCandidateDTO struct {
	Entry waitlistEntryDTO `json:"entry"`
	Score int              `json:"score"`
}

func newRankedCandidateDTOs(ranked []priority.Ranked) []rankedCandidateDTO {
	out := make([]rankedCandidateDTO, len(ranked))
	for i, r := range ranked {
		out[i] = rankedCandidateDTO{Entry: newWaitlistEntryDTO(r.Entry), Score: r.Score}
	}
	return out
}

// openSlotResponse is spec §6's `open_slot(slot_id)` response shape:
// {slot, candidates, top_candidate?, notification_enqueued}.
type openSlotResponse struct {
	Slot                 slotDTO               `json:"slot"`
	Candidates           []rankedCandidateDTO  `json:"candidates"`
	TopCandidate         *waitlistEntryDTO     `json:"top_candidate,omitempty"`
	NotificationEnqueued bool                  `json:"notification_enqueued"`
}

func newOpenSlotResponse(r engine.OpenSlotResult) openSlotResponse {
	resp := openSlotResponse{
		Slot:                 newSlotDTO(r.Slot),
		Candidates:           newRankedCandidateDTOs(r.Candidates),
		NotificationEnqueued: r.NotificationEnqueued,
	}
	if r.TopCandidate != nil {
		dto := newWaitlistEntryDTO(*r.TopCandidate)
		resp.TopCandidate = &dto
	}
	return resp
}

// holdSlotRequest is the optional body for spec §6's `hold_slot(slot_id,
// ttl_minutes?)`.
type holdSlotRequest struct {
	TTLMinutes int `json:"ttl_minutes,omitempty"`
}

// tokenRequest is the body shared by confirm and decline.
type tokenRequest struct {
	Token string `json:"token"`
}

// bookingDTO is the wire representation of a model.Booking.
type bookingDTO struct {
	ID           string `json:"id"`
	SlotID       string `json:"slot_id"`
	CustomerName string `json:"customer_name"`
	Status       string `json:"status"`
	Source       string `json:"source"`
}

func newBookingDTO(b model.Booking) bookingDTO {
	return bookingDTO{
		ID:           b.ID,
		SlotID:       b.SlotID,
		CustomerName: b.CustomerName,
		Status:       string(b.Status),
		Source:       string(b.Source),
	}
}

// confirmResponse is spec §6's `confirm(token)` success shape: {booking}.
type confirmResponse struct {
	Booking bookingDTO `json:"booking"`
}

// cascadeDTO reports the outcome of a cascade triggered by decline/expire.
type cascadeDTO struct {
	NextCandidate *waitlistEntryDTO `json:"next_candidate,omitempty"`
}

// declineResponse is spec §6's `decline(token)` success shape:
// {cascade: {next_candidate?}}.
type declineResponse struct {
	Cascade cascadeDTO `json:"cascade"`
}

func newDeclineResponse(outcome engine.CascadeOutcome) declineResponse {
	resp := declineResponse{}
	if outcome.Held {
		dto := newWaitlistEntryDTO(outcome.Entry)
		resp.Cascade.NextCandidate = &dto
	}
	return resp
}

// processExpiredHoldsResponse is spec §6's `process_expired_holds()`
// response shape: {released_count, cascade_notifications}.
type processExpiredHoldsResponse struct {
	ReleasedCount         int `json:"released_count"`
	CascadeNotifications int `json:"cascade_notifications"`
}

func newProcessExpiredHoldsResponse(r engine.TickResult) processExpiredHoldsResponse {
	return processExpiredHoldsResponse{
		ReleasedCount:         r.ReleasedHolds,
		CascadeNotifications: r.CascadesStarted,
	}
}

// cancelSlotRequest is the body for spec §6's `cancel_slot(slot_id)`.
type cancelSlotRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}
