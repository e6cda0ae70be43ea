package engine

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Engine
// =============================================================================

// Options tune engine construction.
type Options struct {
	// GateInterval is the gatekeeper tick period; zero uses the default.
	GateInterval time.Duration

	// Prober overrides the store round-trip health probe.
	Prober Prober
}

// Engine wires the store to the component services.
type Engine struct {
	Store      *Store
	Metrics    *Metrics
	Planner    *Planner
	Artifacts  *Artifacts
	Migrations *Coordinator
	Rollouts   *Rollouts
	Health     *Health
	Gatekeeper *Gatekeeper
}

// New builds the full service graph over an opened store.
func New(store *Store, reg prometheus.Registerer, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	metrics := NewMetrics(reg)
	rollouts := NewRollouts(store, metrics, logger)
	health := NewHealth(store, metrics, logger, opts.Prober)

	return &Engine{
		Store:      store,
		Metrics:    metrics,
		Planner:    NewPlanner(store, metrics, logger),
		Artifacts:  NewArtifacts(store, metrics, logger),
		Migrations: NewCoordinator(store, metrics, logger),
		Rollouts:   rollouts,
		Health:     health,
		Gatekeeper: NewGatekeeper(rollouts, health, opts.GateInterval, logger),
	}
}
