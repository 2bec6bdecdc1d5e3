// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for slot/waitlist state
// transitions. It follows the WHO/WHAT/WHEN pattern for compliance and
// forensics, and mirrors each event into the Store's audit_logs table.
// The audit row is written after the state change it records has
// committed, in a separate store call; it is not part of that transaction.
package audit

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventSlotOpened   EventType = "slot.opened"
	EventSlotHeld     EventType = "slot.held"
	EventSlotBooked   EventType = "slot.booked"
	EventSlotCanceled EventType = "slot.canceled"

	EventEntryNotified  EventType = "entry.notified"
	EventEntryConfirmed EventType = "entry.confirmed"
	EventEntryDeclined  EventType = "entry.declined"
	EventEntryExpired   EventType = "entry.expired"
	EventEntryRemoved   EventType = "entry.removed"

	EventCascadeRun EventType = "cascade.run"
)

// Event represents a structured audit event. It matches the shape of an
// AuditLog row: actor/action/result identify WHO did WHAT and with what
// outcome, Resource names the slot or entry affected, Details carries
// event-specific context (old/new state, reason, actor type).
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`             // WHO: staff id, waitlist entry id, or "system"
	Action     string            `json:"action"`            // WHAT: human-readable action description
	Resource   string            `json:"resource"`          // slot id or waitlist entry id affected
	Result     string            `json:"result"`            // success, failure, denied
	RemoteAddr string            `json:"remote_addr"`       // client IP, for confirm/decline webhooks
	UserAgent  string            `json:"user_agent"`        // client user agent
	RequestID  string            `json:"request_id"`        // correlation ID
	Details    map[string]string `json:"details,omitempty"` // tenant_id, old_state, new_state, reason, etc.
}

// Logger provides audit logging functionality. It also persists rows via an
// optional Sink so audit_logs are durable, not just a log line.
type Logger struct {
	logger zerolog.Logger
	sink   Sink
}

// Sink persists an audit Event as a durable AuditLog row. Logger calls it
// after the state change the event records has already committed, so a
// failed sink write leaves the state change in place without its row.
type Sink interface {
	RecordAuditLog(ctx context.Context, event Event) error
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
// sink may be nil, in which case events are only emitted to the structured
// log stream.
func NewLogger(sink Sink) *Logger {
	auditLogger := log.WithComponent("audit").With().
		Str("log_type", "audit").
		Logger()

	return &Logger{
		logger: auditLogger,
		sink:   sink,
	}
}

// Log writes an audit event to the audit log stream and, if a sink is
// configured, persists it. Sink errors are logged but never block the
// caller — the audit stream is best-effort relative to the already-committed
// state transition it describes.
func (l *Logger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}
	logEvent.Msg("audit event")

	if l.sink == nil {
		return
	}
	if err := l.sink.RecordAuditLog(ctx, event); err != nil {
		l.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("audit sink write failed")
	}
}

// LogFromContext logs an audit event, filling RequestID from ctx when absent.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(ctx)
	}
	l.Log(ctx, event)
}

// SlotOpened records a slot entering the open state.
func (l *Logger) SlotOpened(ctx context.Context, tenantID, slotID, staffID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSlotOpened,
		Actor:    staffID,
		Action:   "opened slot",
		Resource: slotID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"new_state": "open",
		},
	})
}

// SlotHeld records a slot being placed on hold for a candidate entry.
func (l *Logger) SlotHeld(ctx context.Context, tenantID, slotID, entryID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSlotHeld,
		Actor:    entryID,
		Action:   "held slot for candidate",
		Resource: slotID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": "open",
			"new_state": "held",
			"entry_id":  entryID,
		},
	})
}

// SlotBooked records a slot being confirmed into a booking.
func (l *Logger) SlotBooked(ctx context.Context, tenantID, slotID, entryID, bookingID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSlotBooked,
		Actor:    entryID,
		Action:   "confirmed booking",
		Resource: slotID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id":  tenantID,
			"old_state":  "held",
			"new_state":  "booked",
			"entry_id":   entryID,
			"booking_id": bookingID,
		},
	})
}

// SlotCanceled records a slot being canceled from any prior state.
func (l *Logger) SlotCanceled(ctx context.Context, tenantID, slotID, fromState, actor, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSlotCanceled,
		Actor:    actor,
		Action:   "canceled slot",
		Resource: slotID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": fromState,
			"new_state": "canceled",
			"reason":    reason,
		},
	})
}

// EntryNotified records a waitlist entry being notified of a held slot.
func (l *Logger) EntryNotified(ctx context.Context, tenantID, entryID, slotID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventEntryNotified,
		Actor:    "system",
		Action:   "notified waitlist entry",
		Resource: entryID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": "active",
			"new_state": "notified",
			"slot_id":   slotID,
		},
	})
}

// EntryConfirmed records a waitlist entry confirming its held slot.
func (l *Logger) EntryConfirmed(ctx context.Context, tenantID, entryID, slotID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventEntryConfirmed,
		Actor:    entryID,
		Action:   "confirmed held slot",
		Resource: entryID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": "notified",
			"new_state": "confirmed",
			"slot_id":   slotID,
		},
	})
}

// EntryDeclined records a waitlist entry declining its held slot.
func (l *Logger) EntryDeclined(ctx context.Context, tenantID, entryID, slotID, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventEntryDeclined,
		Actor:    entryID,
		Action:   "declined held slot",
		Resource: entryID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": "notified",
			"new_state": "active",
			"slot_id":   slotID,
			"reason":    reason,
		},
	})
}

// EntryExpired records a held slot's hold window lapsing without confirmation.
func (l *Logger) EntryExpired(ctx context.Context, tenantID, entryID, slotID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventEntryExpired,
		Actor:    "system",
		Action:   "hold expired without confirmation",
		Resource: entryID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"old_state": "notified",
			"new_state": "active",
			"slot_id":   slotID,
			"reason":    "hold_expired",
		},
	})
}

// EntryRemoved records a waitlist entry being removed (withdrawn or pruned).
func (l *Logger) EntryRemoved(ctx context.Context, tenantID, entryID, actor, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventEntryRemoved,
		Actor:    actor,
		Action:   "removed waitlist entry",
		Resource: entryID,
		Result:   "success",
		Details: map[string]string{
			"tenant_id": tenantID,
			"new_state": "removed",
			"reason":    reason,
		},
	})
}

// CascadeRun records a cascade re-hold attempt following a decline or expiry.
func (l *Logger) CascadeRun(ctx context.Context, tenantID, slotID string, candidatesConsidered int, selectedEntryID, result string) {
	l.LogFromContext(ctx, Event{
		Type:     EventCascadeRun,
		Actor:    "system",
		Action:   "ran cascade candidate selection",
		Resource: slotID,
		Result:   result,
		Details: map[string]string{
			"tenant_id":             tenantID,
			"candidates_considered": formatInt(candidatesConsidered),
			"selected_entry_id":     selectedEntryID,
		},
	})
}

func formatInt(i int) string {
	return formatInt64(int64(i))
}

func formatInt64(i int64) string {
	if i == 0 {
		return "0"
	}

	neg := i < 0
	if neg {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if neg {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
