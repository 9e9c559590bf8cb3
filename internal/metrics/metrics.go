// Package metrics exposes Prometheus counters for the editing session.
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cargo_intake"

// Metrics holds the session collectors.
type Metrics struct {
	edits     *prometheus.CounterVec
	requests  *prometheus.CounterVec
	results   *prometheus.CounterVec
	autoFills *prometheus.CounterVec
	advisory  *prometheus.CounterVec
	degraded  prometheus.Counter
	latency   *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		edits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "edits_total",
			Help:      "Cell writes by source (user, ai)",
		}, []string{"source"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "requests_total",
			Help:      "Collaborator requests issued by kind (suggest, validate)",
		}, []string{"kind"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "results_total",
			Help:      "Collaborator results by kind and outcome (applied, stale, error)",
		}, []string{"kind", "outcome"}),
		autoFills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "autofills_total",
			Help:      "Cells written by confidence-gated auto-fill",
		}, []string{"field"}),
		advisory: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "advisory_issues_total",
			Help:      "Advisory issues merged into cell results by severity",
		}, []string{"severity"}),
		degraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "degraded_total",
			Help:      "Switches to the local fallback after a rate-limit signal",
		}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assist",
			Name:      "latency_seconds",
			Help:      "Collaborator round-trip latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
	}
}

func (m *Metrics) RecordEdit(source string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordRequest(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

// RecordResult counts a finished request. outcome is applied, stale or error.
func (m *Metrics) RecordResult(kind, outcome string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordAutoFill(field string) {
	if m == nil {
		return
	}
	m.autoFills.WithLabelValues(field).Inc()
}

func (m *Metrics) RecordAdvisory(severity string) {
	if m == nil {
		return
	}
	m.advisory.WithLabelValues(severity).Inc()
}

func (m *Metrics) RecordDegraded() {
	if m == nil {
		return
	}
	m.degraded.Inc()
}

func (m *Metrics) ObserveLatency(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}
