// Package metrics provides Prometheus metrics for the waitlistd engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Constraint: no session/entry/booking IDs in labels (unbounded cardinality).

var (
	// Counters

	// HoldsCreatedTotal counts holds placed on a slot, by origin
	// ("hold_top_candidate" or "cascade").
	HoldsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_holds_created_total",
		Help: "Total number of slot holds placed, by origin.",
	}, []string{"origin"})

	// HoldsReleasedTotal counts holds released, by reason.
	HoldsReleasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_holds_released_total",
		Help: "Total number of slot holds released, by reason (declined/expired/canceled).",
	}, []string{"reason"})

	// CascadeRunsTotal counts Cascade Protocol runs, by outcome.
	CascadeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_cascade_runs_total",
		Help: "Total number of Cascade Protocol runs, by outcome (held/no_eligible_candidate).",
	}, []string{"outcome"})

	// CascadeNotificationsTotal counts notification attempts sent as part of
	// a cascade hold, by send outcome.
	CascadeNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_cascade_notifications_total",
		Help: "Total number of cascade hold notifications sent, by outcome (sent/failed).",
	}, []string{"outcome"})

	// BookingsConfirmedTotal counts successful confirmations.
	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlistd_bookings_confirmed_total",
		Help: "Total number of bookings confirmed.",
	})

	// NotificationSendTotal counts notification dispatcher sends, by status.
	NotificationSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_notification_send_total",
		Help: "Total number of notification send attempts, by status (sent/failed/exhausted).",
	}, []string{"status"})

	// CalendarSyncTotal counts calendar adapter operations, by op and outcome.
	CalendarSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_calendar_sync_total",
		Help: "Total number of calendar adapter operations, by op (create/delete) and outcome (ok/error).",
	}, []string{"op", "outcome"})

	// InvariantViolationTotal counts detected invariant violations, by rule.
	InvariantViolationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlistd_invariant_violation_total",
		Help: "Total number of invariant violations detected, by rule.",
	}, []string{"rule"})

	// Gauges

	// HeldSlotsGauge tracks the current number of slots in the held state.
	HeldSlotsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlistd_held_slots",
		Help: "Current number of slots currently held pending confirmation.",
	})

	// WaitlistEntriesActiveGauge tracks current active waitlist entries, by
	// tenant.
	WaitlistEntriesActiveGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "waitlistd_waitlist_entries_active",
		Help: "Current number of active waitlist entries, by tenant.",
	}, []string{"tenant_id"})

	// TickerLastRunTimestamp tracks the Unix timestamp of the Hold Ticker's
	// most recent completed pass, for staleness alerting.
	TickerLastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlistd_ticker_last_run_timestamp_seconds",
		Help: "Unix timestamp of the Hold Ticker's most recently completed pass.",
	})
)

// RecordHoldCreated increments the holds-created counter for origin.
func RecordHoldCreated(origin string) {
	HoldsCreatedTotal.WithLabelValues(origin).Inc()
}

// RecordHoldReleased increments the holds-released counter for reason.
func RecordHoldReleased(reason string) {
	HoldsReleasedTotal.WithLabelValues(reason).Inc()
}

// RecordCascadeRun increments the cascade-runs counter for outcome.
func RecordCascadeRun(outcome string) {
	CascadeRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordCascadeNotification increments the cascade-notifications counter.
func RecordCascadeNotification(outcome string) {
	CascadeNotificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBookingConfirmed increments the bookings-confirmed counter.
func RecordBookingConfirmed() {
	BookingsConfirmedTotal.Inc()
}

// RecordNotificationSend increments the notification-send counter.
func RecordNotificationSend(status string) {
	NotificationSendTotal.WithLabelValues(status).Inc()
}

// RecordCalendarSync increments the calendar-sync counter.
func RecordCalendarSync(op, outcome string) {
	CalendarSyncTotal.WithLabelValues(op, outcome).Inc()
}

// RecordInvariantViolation increments the invariant-violation counter.
func RecordInvariantViolation(rule string) {
	InvariantViolationTotal.WithLabelValues(rule).Inc()
}

// SetHeldSlots sets the held-slots gauge.
func SetHeldSlots(count float64) {
	HeldSlotsGauge.Set(count)
}

// SetWaitlistEntriesActive sets the active-entries gauge for a tenant.
func SetWaitlistEntriesActive(tenantID string, count float64) {
	WaitlistEntriesActiveGauge.WithLabelValues(tenantID).Set(count)
}

// RecordTickerRun stamps the ticker's last-run gauge with the given Unix
// timestamp (caller-supplied so tests stay deterministic without wall-clock
// reads here).
func RecordTickerRun(unixSeconds float64) {
	TickerLastRunTimestamp.Set(unixSeconds)
}

// GetHeldSlots returns the held-slots gauge's current value, for tests
// that need to assert on gauge state without scraping /metrics.
func GetHeldSlots() float64 {
	var m dto.Metric
	if err := HeldSlotsGauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
