// Package metrics registers the Prometheus collectors the update
// driver and freezer report through. Styled after a
// RegisterCounter/RegisterGauge idiom and a per-subsystem metrics
// struct, collapsed into a single flat registry since this module has
// one subsystem rather than several.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "procadj"

// Registry holds every collector the adjuster updates during a pass.
type Registry struct {
	PassDuration        *prometheus.HistogramVec
	ReachableSetSize    prometheus.Gauge
	ProcessesUpdated    *prometheus.CounterVec
	OomAdjChanges       prometheus.Counter
	ProcStateChanges    prometheus.Counter
	CapabilityChanges   prometheus.Counter
	FreezerDecisions    *prometheus.CounterVec
	CycleRetryExhausted prometheus.Counter
	CycleRetryRounds    prometheus.Histogram
}

// NewRegistry builds a Registry and registers every collector against
// reg. Pass prometheus.NewRegistry() in production, or a fresh
// registry per test to avoid duplicate-registration panics across
// parallel test packages.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall-clock duration of an update pass.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}), // kind = "full" | "partial"

		ReachableSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reachable_set_size",
			Help:      "Number of processes visited in the most recent partial pass.",
		}),

		ProcessesUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_updated_total",
			Help:      "Processes whose computed attributes changed; every increment uses kind=\"pass\".",
		}, []string{"kind"}),

		OomAdjChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oom_adj_changes_total",
			Help:      "Number of processes whose oom-adj score changed.",
		}),

		ProcStateChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proc_state_changes_total",
			Help:      "Number of processes whose procstate changed.",
		}),

		CapabilityChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_changes_total",
			Help:      "Number of processes whose capability bits changed.",
		}),

		FreezerDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freezer_decisions_total",
			Help:      "Freeze/unfreeze decisions, by outcome.",
		}, []string{"decision"}), // "freeze_at_earliest" | "freeze_async" | "unfreeze"

		CycleRetryExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_retry_exhausted_total",
			Help:      "Dependency cycles that failed to converge within the retry bound.",
		}),

		CycleRetryRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_retry_rounds",
			Help:      "Rounds spent resolving a dependency cycle before it converged.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}

	reg.MustRegister(
		m.PassDuration,
		m.ReachableSetSize,
		m.ProcessesUpdated,
		m.OomAdjChanges,
		m.ProcStateChanges,
		m.CapabilityChanges,
		m.FreezerDecisions,
		m.CycleRetryExhausted,
		m.CycleRetryRounds,
	)

	return m
}
