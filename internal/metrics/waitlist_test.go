package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/waitlistd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)
	return recorder.Body.String()
}

func TestRecordHoldCreated(t *testing.T) {
	metrics.RecordHoldCreated("cascade")

	body := scrape(t)
	if !strings.Contains(body, "waitlistd_holds_created_total") {
		t.Error("expected waitlistd_holds_created_total metric to be present")
	}
	if !strings.Contains(body, `origin="cascade"`) {
		t.Error("expected origin label to be present")
	}
}

func TestRecordHoldReleased(t *testing.T) {
	for _, reason := range []string{"declined", "expired", "canceled"} {
		metrics.RecordHoldReleased(reason)
	}

	body := scrape(t)
	for _, reason := range []string{"declined", "expired", "canceled"} {
		if !strings.Contains(body, `reason="`+reason+`"`) {
			t.Errorf("expected reason label %q to be present", reason)
		}
	}
}

func TestRecordCascadeRunAndNotification(t *testing.T) {
	metrics.RecordCascadeRun("held")
	metrics.RecordCascadeRun("no_eligible_candidate")
	metrics.RecordCascadeNotification("sent")
	metrics.RecordCascadeNotification("failed")

	body := scrape(t)
	if !strings.Contains(body, "waitlistd_cascade_runs_total") {
		t.Error("expected waitlistd_cascade_runs_total metric to be present")
	}
	if !strings.Contains(body, "waitlistd_cascade_notifications_total") {
		t.Error("expected waitlistd_cascade_notifications_total metric to be present")
	}
}

func TestRecordBookingConfirmed(t *testing.T) {
	metrics.RecordBookingConfirmed()

	body := scrape(t)
	if !strings.Contains(body, "waitlistd_bookings_confirmed_total") {
		t.Error("expected waitlistd_bookings_confirmed_total metric to be present")
	}
}

func TestRecordNotificationSend(t *testing.T) {
	metrics.RecordNotificationSend("exhausted")

	body := scrape(t)
	if !strings.Contains(body, `status="exhausted"`) {
		t.Error("expected status label to be present")
	}
}

func TestRecordCalendarSync(t *testing.T) {
	metrics.RecordCalendarSync("delete", "ok")

	body := scrape(t)
	if !strings.Contains(body, `op="delete"`) || !strings.Contains(body, `outcome="ok"`) {
		t.Error("expected op and outcome labels to be present")
	}
}

func TestRecordInvariantViolation(t *testing.T) {
	metrics.RecordInvariantViolation("double_hold")

	body := scrape(t)
	if !strings.Contains(body, `rule="double_hold"`) {
		t.Error("expected rule label to be present")
	}
}

func TestSetHeldSlotsAndWaitlistEntriesActive(t *testing.T) {
	metrics.SetHeldSlots(7)
	metrics.SetWaitlistEntriesActive("tenant-1", 42)

	if got := metrics.GetHeldSlots(); got != 7 {
		t.Errorf("expected GetHeldSlots() == 7, got %v", got)
	}

	body := scrape(t)
	if !strings.Contains(body, "waitlistd_held_slots 7") {
		t.Error("expected waitlistd_held_slots gauge value to be present")
	}
	if !strings.Contains(body, `tenant_id="tenant-1"`) {
		t.Error("expected tenant_id label to be present")
	}
}

func TestRecordTickerRun(t *testing.T) {
	metrics.RecordTickerRun(1700000000)

	body := scrape(t)
	if !strings.Contains(body, "waitlistd_ticker_last_run_timestamp_seconds 1.7e+09") &&
		!strings.Contains(body, "waitlistd_ticker_last_run_timestamp_seconds 1700000000") {
		t.Error("expected waitlistd_ticker_last_run_timestamp_seconds gauge to be present")
	}
}
