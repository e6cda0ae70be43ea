package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Metrics
// =============================================================================

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	PlansCreated      prometheus.Counter
	PlanExecutions    *prometheus.CounterVec
	ArtifactBuilds    prometheus.Counter
	ArtifactDedupHits prometheus.Counter
	GCRemoved         prometheus.Counter
	MigrationSteps    *prometheus.CounterVec
	RolloutAdvances   prometheus.Counter
	RolloutAborts     prometheus.Counter
	ProbeLatency      prometheus.Histogram
}

// NewMetrics creates and registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PlansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "plans_created_total",
			Help:      "Deployment plans created.",
		}),
		PlanExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "plan_executions_total",
			Help:      "Plan executions by final phase.",
		}, []string{"phase"}),
		ArtifactBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "artifact_builds_total",
			Help:      "Artifacts built and stored.",
		}),
		ArtifactDedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "artifact_dedup_hits_total",
			Help:      "Build requests answered by an existing artifact.",
		}),
		GCRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "artifacts_gc_removed_total",
			Help:      "Artifacts removed by garbage collection.",
		}),
		MigrationSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "migration_steps_total",
			Help:      "Schema migration phase transitions by action.",
		}, []string{"action"}),
		RolloutAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "rollout_advances_total",
			Help:      "Rollout step advances, including completions.",
		}),
		RolloutAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipyard",
			Name:      "rollout_aborts_total",
			Help:      "Rollouts aborted.",
		}),
		ProbeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shipyard",
			Name:      "probe_latency_seconds",
			Help:      "Health probe round-trip latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	reg.MustRegister(
		m.PlansCreated, m.PlanExecutions,
		m.ArtifactBuilds, m.ArtifactDedupHits, m.GCRemoved,
		m.MigrationSteps,
		m.RolloutAdvances, m.RolloutAborts,
		m.ProbeLatency,
	)
	return m
}
