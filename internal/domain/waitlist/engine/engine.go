// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package engine wires the Candidate Selector, Slot/WaitlistEntry state
// machines, and the Store's CAS transitions into the three operations spec
// §4 names: the Confirmation Handler (§4.4), the Cascade Protocol (§4.6),
// and the Hold Ticker (§4.5). It is the only layer that mutates state;
// selector and priority stay read-only and pure.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/clock"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/selector"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/token"
)

// NotificationRequest carries everything a Notifier needs to render and
// send a hold notification, including the pre-signed confirm/decline
// tokens (spec §4.4's template contract, §4.7's send contract).
type NotificationRequest struct {
	TenantID     string
	Entry        model.WaitlistEntry
	Slot         model.Slot
	ConfirmToken string
	DeclineToken string
}

// Notifier sends a hold notification out-of-band. It never touches slot or
// entry state — it only reports send outcomes back through the Store's
// Notification rows (spec §4.7: "the dispatcher never changes slot or
// entry status").
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) error
}

// CalendarEnqueuer schedules best-effort external-calendar side effects
// outside the core transaction (spec §4.8).
type CalendarEnqueuer interface {
	EnqueueCreate(ctx context.Context, tenantID string, slot model.Slot, booking model.Booking) error
	EnqueueDelete(ctx context.Context, tenantID string, slot model.Slot) error
}

// Config bundles the engine's tunable knobs (spec §6).
type Config struct {
	HoldTTL                  time.Duration
	ConfirmTokenTTL          time.Duration
	CascadeFanoutK           int
	TickerInterval           time.Duration
	TickerPageSize           int
	MaxActiveEntriesPerPhone int // per-tenant per-phone cap enforced on waitlist insert, spec §6
}

// Engine implements the Confirmation Handler, Cascade Protocol, and Hold
// Ticker over a Store.
type Engine struct {
	store    store.Store
	clock    clock.Clock
	selector selector.Interface
	codec    *token.Codec
	audit    *audit.Logger
	notifier Notifier
	calendar CalendarEnqueuer
	cfg      Config
	lastTick atomic.Int64 // unix nanos of the last completed TickOnce, see LastTickerRun
}

// New builds an Engine with an uncached Selector. notifier/calendar may be
// nil in tests that don't exercise notification or calendar side effects.
func New(s store.Store, c clock.Clock, codec *token.Codec, auditLogger *audit.Logger, notifier Notifier, cal CalendarEnqueuer, cfg Config) *Engine {
	return NewWithSelector(s, c, selector.New(s, c), codec, auditLogger, notifier, cal, cfg)
}

// NewWithSelector builds an Engine against a caller-supplied selector.Interface,
// e.g. a *selector.CachingSelector wrapping a Redis-backed candidate-ranking
// cache (SPEC_FULL.md §3).
func NewWithSelector(s store.Store, c clock.Clock, sel selector.Interface, codec *token.Codec, auditLogger *audit.Logger, notifier Notifier, cal CalendarEnqueuer, cfg Config) *Engine {
	if cfg.CascadeFanoutK <= 0 {
		cfg.CascadeFanoutK = 5
	}
	if cfg.MaxActiveEntriesPerPhone <= 0 {
		cfg.MaxActiveEntriesPerPhone = 3
	}
	return &Engine{
		store:    s,
		clock:    c,
		selector: sel,
		codec:    codec,
		audit:    auditLogger,
		notifier: notifier,
		calendar: cal,
		cfg:      cfg,
	}
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock.Now()
}
