package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEvent("connected")
	m.ObserveDecodeError("nil_event")
	m.ObserveRequeue()
	m.ObserveTimeout("query")
	done := m.RequestStarted("query")
	done()
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveEvent("data_received")
	m.ObserveEvent("data_received")
	m.ObserveRequeue()
	m.ObserveTimeout("connect")
	done := m.RequestStarted("query")
	done()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`wmcaflow_events_total{kind="data_received"} 2`,
		`wmcaflow_requeued_events_total 1`,
		`wmcaflow_timeouts_total{operation="connect"} 1`,
		`wmcaflow_inflight_requests 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRequestStartedTracksInFlight(t *testing.T) {
	m := New()
	done := m.RequestStarted("query")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "wmcaflow_inflight_requests 1") {
		t.Error("in-flight gauge not incremented")
	}

	done()
}
