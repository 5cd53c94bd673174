// Package observability holds the Prometheus metrics of the editing core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics groups the counters recorded by sessions and services.
// A nil *Metrics records nothing.
type Metrics struct {
	autosaves      *prometheus.CounterVec
	snapshots      *prometheus.CounterVec
	restores       *prometheus.CounterVec
	polls          *prometheus.CounterVec
	generationJobs *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	activeSessions prometheus.Gauge
}

// NewMetrics registers the metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		autosaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoc_autosave_total",
			Help: "Current-content writes by trigger and result",
		}, []string{"trigger", "result"}),
		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoc_snapshots_total",
			Help: "Snapshot attempts by kind (auto, named) and result",
		}, []string{"kind", "result"}),
		restores: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoc_restores_total",
			Help: "Version restores by result",
		}, []string{"result"}),
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoc_generation_polls_total",
			Help: "Generation status polls by observed status",
		}, []string{"status"}),
		generationJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoc_generation_jobs_total",
			Help: "Generation jobs by result",
		}, []string{"result"}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartdoc_save_duration_seconds",
			Help:    "Duration of current-content writes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "smartdoc_active_sessions",
			Help: "Open editing sessions",
		}),
	}
}

// Autosave records a current-content write. trigger is "debounce" or "forced".
func (m *Metrics) Autosave(trigger, result string, seconds float64) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(trigger, result).Inc()
	if result != ResultSkipped {
		m.saveDuration.Observe(seconds)
	}
}

// Snapshot records a snapshot attempt
func (m *Metrics) Snapshot(kind, result string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(kind, result).Inc()
}

// Restore records a restore attempt
func (m *Metrics) Restore(result string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(result).Inc()
}

// Poll records one generation status poll. status is the observed document
// status, or "failed" when the poll itself failed.
func (m *Metrics) Poll(status string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(status).Inc()
}

// GenerationJob records the outcome of a generation job
func (m *Metrics) GenerationJob(result string) {
	if m == nil {
		return
	}
	m.generationJobs.WithLabelValues(result).Inc()
}

// SessionOpened increments the active session gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
