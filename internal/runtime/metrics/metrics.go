// Package metrics exposes the Prometheus instrumentation for the event pump
// and the correlated request path. All methods are nil-safe so callers can
// carry a nil *Metrics when metrics are disabled.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the runtime updates.
type Metrics struct {
	eventsTotal   *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	requeuedTotal prometheus.Counter
	timeoutsTotal *prometheus.CounterVec
	inFlight      prometheus.Gauge
	waitDuration  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New registers the wmcaflow collectors on a fresh registry and returns the
// handle used to update them.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmcaflow_events_total",
			Help: "Events delivered by the native transport, by kind.",
		}, []string{"kind"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmcaflow_decode_errors_total",
			Help: "Events dropped because decoding failed, by reason.",
		}, []string{"reason"}),
		requeuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wmcaflow_requeued_events_total",
			Help: "Correlated events requeued because they belonged to another transaction.",
		}),
		timeoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmcaflow_timeouts_total",
			Help: "Requests that timed out waiting for a terminal event, by operation.",
		}, []string{"operation"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wmcaflow_inflight_requests",
			Help: "Correlated requests currently waiting for replies.",
		}),
		waitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wmcaflow_wait_duration_seconds",
			Help:    "Time spent waiting for a terminal event, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// ObserveEvent counts one delivered event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Inc()
}

// ObserveDecodeError counts one dropped event.
func (m *Metrics) ObserveDecodeError(reason string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(reason).Inc()
}

// ObserveRequeue counts one requeued event.
func (m *Metrics) ObserveRequeue() {
	if m == nil {
		return
	}
	m.requeuedTotal.Inc()
}

// ObserveTimeout counts one timed-out operation.
func (m *Metrics) ObserveTimeout(operation string) {
	if m == nil {
		return
	}
	m.timeoutsTotal.WithLabelValues(operation).Inc()
}

// RequestStarted marks a correlated request in flight and returns a func that
// settles the gauge and the wait histogram when the request finishes.
func (m *Metrics) RequestStarted(operation string) func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	start := time.Now()
	return func() {
		m.inFlight.Dec()
		m.waitDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the /metrics HTTP handler for the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the handler on the given port in a background goroutine.
// Errors are reported through errFn because the listener outlives the caller.
func (m *Metrics) Serve(port int, errFn func(error)) {
	if m == nil || port <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil && errFn != nil {
			errFn(err)
		}
	}()
}
