// Package metrics exposes Prometheus instrumentation for command runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runStartedTotal   *prometheus.CounterVec
	runCompletedTotal *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// RunMetrics provides methods to record command run metrics.
type RunMetrics struct{}

// NewRunMetrics creates a new RunMetrics instance.
// Metrics are lazily registered on first use.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		runStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runcmd_run_started_total",
				Help: "Total number of command runs started",
			},
			[]string{"executable"},
		)

		runCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runcmd_run_completed_total",
				Help: "Total number of command runs completed",
			},
			[]string{"executable", "status"},
		)

		runDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runcmd_run_duration_seconds",
				Help:    "Duration of command runs in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"executable"},
		)

		metricsRegistered = true
	})
}

// RecordRunStarted records a run start event.
func (m *RunMetrics) RecordRunStarted(executable string) {
	if !metricsRegistered || runStartedTotal == nil {
		return
	}
	runStartedTotal.WithLabelValues(executable).Inc()
}

// RecordRunCompleted records a run completion event.
func (m *RunMetrics) RecordRunCompleted(executable, status string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if runCompletedTotal != nil {
		runCompletedTotal.WithLabelValues(executable, status).Inc()
	}

	if runDuration != nil {
		runDuration.WithLabelValues(executable).Observe(durationSeconds)
	}
}

// GetRunStartedTotal returns the run started counter for testing.
func GetRunStartedTotal() *prometheus.CounterVec {
	return runStartedTotal
}

// GetRunCompletedTotal returns the run completed counter for testing.
func GetRunCompletedTotal() *prometheus.CounterVec {
	return runCompletedTotal
}

// GetRunDuration returns the run duration histogram for testing.
func GetRunDuration() *prometheus.HistogramVec {
	return runDuration
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered
}
