// Package metrics exposes prometheus instrumentation for the evidence
// pipeline and the forensic collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	phaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexato",
		Subsystem: "pipeline",
		Name:      "phase_transitions_total",
		Help:      "Count of evidence status transitions.",
	}, []string{"phase", "status"})

	phaseTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexato",
		Subsystem: "pipeline",
		Name:      "phase_timeouts_total",
		Help:      "Count of phase watchdog expirations.",
	}, []string{"phase"})

	progressPersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lexato",
		Subsystem: "pipeline",
		Name:      "progress_persist_failures_total",
		Help:      "Count of best-effort progress persistence failures.",
	})

	collectorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexato",
		Subsystem: "forensics",
		Name:      "collector_runs_total",
		Help:      "Count of collector task executions by outcome.",
	}, []string{"collector", "outcome"})

	collectorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lexato",
		Subsystem: "forensics",
		Name:      "collector_duration_seconds",
		Help:      "Duration of individual collector tasks.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"collector"})
)

// ObservePhaseTransition records one status transition.
func ObservePhaseTransition(phase, status string) {
	phaseTransitionsTotal.WithLabelValues(phase, status).Inc()
}

// ObservePhaseTimeout records a fired watchdog.
func ObservePhaseTimeout(phase string) {
	phaseTimeoutsTotal.WithLabelValues(phase).Inc()
}

// ObservePersistFailure records a failed background progress write.
func ObservePersistFailure() {
	progressPersistFailuresTotal.Inc()
}

// ObserveCollector records one collector task run.
func ObserveCollector(collector, outcome string, elapsed time.Duration) {
	collectorRunsTotal.WithLabelValues(collector, outcome).Inc()
	collectorDuration.WithLabelValues(collector).Observe(elapsed.Seconds())
}
