// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package errkind classifies core-domain failures into a small, stable set
// of kinds so every layer above the store (transport, outbox, ticker) can
// react the same way regardless of which transition produced the error.
package errkind

import (
	"errors"
	"strings"
)

// Kind is a stable classification of a core-domain failure.
type Kind string

const (
	NotFound           Kind = "not_found"
	InvalidToken       Kind = "invalid_token"
	PreconditionFailed Kind = "precondition_failed"
	Conflict           Kind = "conflict"
	RateLimited        Kind = "rate_limited"
	Transient          Kind = "transient"
	InvariantViolated  Kind = "invariant_violated"
)

// Detail is a sub-kind carried alongside PreconditionFailed to distinguish
// which precondition was violated without resorting to string matching.
type Detail string

const (
	DetailNone                  Detail = ""
	DetailSlotNoLongerAvailable Detail = "slot_no_longer_available"
	DetailHoldExpired           Detail = "hold_expired"
	DetailEntryNotActive        Detail = "entry_not_active"
)

// Error is a typed core-domain failure. It wraps an optional underlying
// error for logging/Unwrap while keeping Kind/Detail as the stable contract
// that callers switch on.
type Error struct {
	Kind   Kind
	Detail Detail
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error of the given kind with no sub-detail.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds a typed error wrapping an underlying cause.
func Newf(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithDetail builds a PreconditionFailed error carrying a sub-kind.
func WithDetail(detail Detail, msg string) error {
	return &Error{Kind: PreconditionFailed, Detail: detail, Msg: msg}
}

// Classify extracts the Kind of err, returning ("", false) if err does not
// wrap an *Error.
func Classify(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ClassifyDetail extracts the Detail sub-kind, if any, from err.
func ClassifyDetail(err error) Detail {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return DetailNone
}

// Is reports whether err is classified as the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Classify(err)
	return ok && k == kind
}

// sanitize truncates and strips newlines from an error detail before it is
// attached to a log line or problem-details response, mirroring the
// teacher's sanitizeDetail for reason errors.
func sanitize(detail string) string {
	if detail == "" {
		return ""
	}
	const maxLen = 160
	clean := strings.ReplaceAll(detail, "\n", " ")
	if len(clean) > maxLen {
		return clean[:maxLen] + "..."
	}
	return clean
}

// Sanitized returns a version of err's message safe to surface in a
// problem-details response or audit log: bounded length, no newlines.
func Sanitized(err error) string {
	if err == nil {
		return ""
	}
	return sanitize(err.Error())
}
