// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prospects"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	ImportCalls           *prometheus.CounterVec
	ProspectsImported     prometheus.Counter
	Assignments           *prometheus.CounterVec
	RecalculationRuns     *prometheus.CounterVec
	RecalculationDuration prometheus.Histogram
	ProspectsRescored     prometheus.Counter
}

// New creates the collectors on a private registry, so tests can build
// as many instances as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ImportCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_calls_total",
			Help:      "Import calls by outcome",
		}, []string{"result"}),
		ProspectsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_total",
			Help:      "Prospect records committed by import calls",
		}),
		Assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Owner assignments by outcome (assigned, unassigned, supplied)",
		}, []string{"outcome"}),
		RecalculationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculation_runs_total",
			Help:      "Scoring recalculation runs by outcome",
		}, []string{"result"}),
		RecalculationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Wall time of successful recalculation runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ProspectsRescored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rescored_total",
			Help:      "Prospect records written by recalculation runs",
		}),
	}
}

// ObserveImport records a committed import call.
func (m *Metrics) ObserveImport(processed, assigned, unassigned, supplied int) {
	m.ImportCalls.WithLabelValues("committed").Inc()
	m.ProspectsImported.Add(float64(processed))
	m.Assignments.WithLabelValues("assigned").Add(float64(assigned))
	m.Assignments.WithLabelValues("unassigned").Add(float64(unassigned))
	m.Assignments.WithLabelValues("supplied").Add(float64(supplied))
}

// ObserveImportRejected records an import call that wrote nothing.
func (m *Metrics) ObserveImportRejected(reason string) {
	m.ImportCalls.WithLabelValues(reason).Inc()
}

// ObserveRecalculation records a finished recalculation run.
func (m *Metrics) ObserveRecalculation(rescored int, took time.Duration) {
	m.RecalculationRuns.WithLabelValues("succeeded").Inc()
	m.RecalculationDuration.Observe(took.Seconds())
	m.ProspectsRescored.Add(float64(rescored))
}

// ObserveRecalculationFailed records a failed or skipped recalculation run.
func (m *Metrics) ObserveRecalculationFailed(result string) {
	m.RecalculationRuns.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
