// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package problem writes RFC 7807 ("application/problem+json") error
// responses and maps errkind.Kind to the type/title/status/code quadruple
// every waitlistd handler reports on failure.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/log"
)

// HeaderRequestID is the canonical header for request correlation.
const HeaderRequestID = "X-Request-ID"

// JSONKeyRequestID is the canonical JSON key for request correlation.
const JSONKeyRequestID = "requestId"

// Write writes an RFC 7807 problem-details response.
//
//   - type: canonical machine identifier, e.g. "waitlist/slot_no_longer_available"
//   - title: human-readable short label, e.g. "Slot No Longer Available"
//   - code: stable machine-readable short code, e.g. "SLOT_NO_LONGER_AVAILABLE"
//   - detail: human-readable explanation of this specific occurrence
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	if r != nil {
		instance = r.URL.EscapedPath()
	}

	reqID := ""
	if r != nil {
		reqID = log.RequestIDFromContext(r.Context())
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":           problemType,
		"title":          title,
		"status":         status,
		"code":           code,
		JSONKeyRequestID: reqID,
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code", JSONKeyRequestID:
			continue
		}
		res[k] = v
	}

	if reqID != "" {
		w.Header().Set(HeaderRequestID, reqID)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().Err(err).Str("type", problemType).Int("status", status).
			Msg("failed to encode problem response")
	}
}

// mapping describes the fixed type/title/code/status quadruple for one
// errkind.Kind (and, where it matters, errkind.Detail).
type mapping struct {
	status int
	typ    string
	title  string
	code   string
}

var kindMappings = map[errkind.Kind]mapping{
	errkind.NotFound:           {http.StatusNotFound, "waitlist/not_found", "Not Found", "NOT_FOUND"},
	errkind.InvalidToken:       {http.StatusUnauthorized, "waitlist/invalid_token", "Invalid Token", "INVALID_TOKEN"},
	errkind.PreconditionFailed: {http.StatusConflict, "waitlist/precondition_failed", "Precondition Failed", "PRECONDITION_FAILED"},
	errkind.Conflict:           {http.StatusConflict, "waitlist/conflict", "Conflict", "CONFLICT"},
	errkind.RateLimited:        {http.StatusTooManyRequests, "waitlist/rate_limited", "Too Many Requests", "RATE_LIMITED"},
	errkind.Transient:          {http.StatusServiceUnavailable, "waitlist/transient", "Temporarily Unavailable", "TRANSIENT"},
	errkind.InvariantViolated:  {http.StatusInternalServerError, "waitlist/invariant_violated", "Invariant Violated", "INVARIANT_VIOLATED"},
}

var detailMappings = map[errkind.Detail]mapping{
	errkind.DetailSlotNoLongerAvailable: {http.StatusConflict, "waitlist/slot_no_longer_available", "Slot No Longer Available", "SLOT_NO_LONGER_AVAILABLE"},
	errkind.DetailHoldExpired:           {http.StatusConflict, "waitlist/hold_expired", "Hold Expired", "HOLD_EXPIRED"},
	errkind.DetailEntryNotActive:        {http.StatusConflict, "waitlist/entry_not_active", "Entry Not Active", "ENTRY_NOT_ACTIVE"},
}

// WriteErr classifies err via errkind and writes the matching RFC 7807
// response. Errors that don't carry an errkind.Kind are reported as a bare
// 500 — every core-domain failure is expected to be classified before it
// reaches the transport layer.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	if detail := errkind.ClassifyDetail(err); detail != errkind.DetailNone {
		if m, ok := detailMappings[detail]; ok {
			Write(w, r, m.status, m.typ, m.title, m.code, errkind.Sanitized(err), nil)
			return
		}
	}

	kind, ok := errkind.Classify(err)
	if !ok {
		Write(w, r, http.StatusInternalServerError, "waitlist/internal", "Internal Server Error", "INTERNAL", "an unexpected error occurred", nil)
		return
	}

	m, ok := kindMappings[kind]
	if !ok {
		Write(w, r, http.StatusInternalServerError, "waitlist/internal", "Internal Server Error", "INTERNAL", "an unexpected error occurred", nil)
		return
	}
	Write(w, r, m.status, m.typ, m.title, m.code, errkind.Sanitized(err), nil)
}
