package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	m := NewMetrics("helpdesk-test")
	m.RecordRequest("/ticket/all", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/ticket/all", "GET", 200, 5*time.Millisecond)
	m.RecordError("/ticket/all", "GET", "FORBIDDEN")
	m.RecordTicketEvent("ticket_created")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/ticket/all", "200")); got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("GET", "/ticket/all", "FORBIDDEN")); got != 1 {
		t.Fatalf("errors = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"http_requests_total", "ticket_events_total", `service="helpdesk-test"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordTicketEvent("x")
}
