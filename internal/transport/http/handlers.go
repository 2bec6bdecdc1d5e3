// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package http implements spec §6's wire surface: a thin chi router that
// translates HTTP requests into calls against the pure engine.Engine
// operations and shapes their results as RFC 7807-compliant JSON. It holds
// no business logic of its own — every invariant lives in engine, fsm, and
// store.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/ratelimit"
	"github.com/ManuGH/waitlistd/internal/transport/http/problem"
)

// Server wires an engine.Engine into handlers for spec §6's wire surface.
type Server struct {
	engine  *engine.Engine
	limiter *ratelimit.Limiter
}

// NewServer builds a Server. limiter may be nil to disable per-action rate
// limiting (e.g. in tests).
func NewServer(eng *engine.Engine, limiter *ratelimit.Limiter) *Server {
	return &Server{engine: eng, limiter: limiter}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithComponentFromContext(r.Context(), "http").Error().Err(err).Msg("failed to encode response")
	}
}

// rateLimited returns true (and has already written the 429 response) if
// action from the caller's IP exceeds its configured limit.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, action string) bool {
	if s.limiter == nil {
		return false
	}
	ip := ratelimit.GetClientIP(r)
	if s.limiter.Allow(ip, action) {
		return false
	}
	problem.Write(w, r, http.StatusTooManyRequests, "waitlist/rate_limited", "Too Many Requests",
		"RATE_LIMITED", "rate limit exceeded for "+action, nil)
	return true
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleOpenSlot implements spec §6's `open_slot(slot_id)`.
func (s *Server) handleOpenSlot(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "open_slot") {
		return
	}
	tenantID := chi.URLParam(r, "tenantID")
	slotID := chi.URLParam(r, "slotID")

	result, err := s.engine.OpenSlot(r.Context(), tenantID, slotID)
	if err != nil {
		problem.WriteErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newOpenSlotResponse(result))
}

// handleHoldSlot implements spec §6's `hold_slot(slot_id, ttl_minutes?)`.
func (s *Server) handleHoldSlot(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	slotID := chi.URLParam(r, "slotID")

	var req holdSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, "waitlist/invalid_request", "Invalid Request",
			"INVALID_REQUEST", "malformed request body", nil)
		return
	}

	var ttl time.Duration
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	held, _, ok, err := s.engine.HoldTopCandidateWithTTL(r.Context(), tenantID, slotID, ttl)
	if err != nil {
		problem.WriteErr(w, r, err)
		return
	}
	if !ok {
		problem.Write(w, r, http.StatusConflict, "waitlist/no_eligible_candidate", "No Eligible Candidate",
			"NO_ELIGIBLE_CANDIDATE", "slot has no eligible waitlist candidates", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, newSlotDTO(held))
}

// handleConfirm implements spec §6's `confirm(token)`.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "confirm") {
		return
	}
	tenantID := chi.URLParam(r, "tenantID")

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		problem.Write(w, r, http.StatusBadRequest, "waitlist/invalid_request", "Invalid Request",
			"INVALID_REQUEST", "token is required", nil)
		return
	}

	result, err := s.engine.Confirm(r.Context(), tenantID, req.Token, time.Now().UTC())
	if err != nil {
		problem.WriteErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, confirmResponse{Booking: newBookingDTO(result.Booking)})
}

// handleDecline implements spec §6's `decline(token)`.
func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "decline") {
		return
	}
	tenantID := chi.URLParam(r, "tenantID")

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		problem.Write(w, r, http.StatusBadRequest, "waitlist/invalid_request", "Invalid Request",
			"INVALID_REQUEST", "token is required", nil)
		return
	}

	result, err := s.engine.Decline(r.Context(), tenantID, req.Token, time.Now().UTC())
	if err != nil {
		problem.WriteErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newDeclineResponse(result.Cascade))
}

// handleProcessExpiredHolds implements spec §6's `process_expired_holds()`.
// It is not tenant-scoped: the Hold Ticker sweeps every tenant's expired
// holds in one pass, same as the background ticker started by engine.Run.
func (s *Server) handleProcessExpiredHolds(w http.ResponseWriter, r *http.Request) {
	result := s.engine.TickOnce(r.Context())
	writeJSON(w, r, http.StatusOK, newProcessExpiredHoldsResponse(result))
}

// handleCancelSlot implements spec §6's `cancel_slot(slot_id)`.
func (s *Server) handleCancelSlot(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	slotID := chi.URLParam(r, "slotID")

	var req cancelSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, "waitlist/invalid_request", "Invalid Request",
			"INVALID_REQUEST", "malformed request body", nil)
		return
	}
	if req.ActorID == "" {
		req.ActorID = "admin"
	}

	result, err := s.engine.Cancel(r.Context(), tenantID, slotID, req.ActorID, req.Reason)
	if err != nil {
		problem.WriteErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSlotDTO(result.Slot))
}

// healthz is a liveness probe: it never touches the store, so it reports
// process health independent of any backend outage.
func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
