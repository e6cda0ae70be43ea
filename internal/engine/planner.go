package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/graph"
	"github.com/artpar/shipyard/internal/core/manifest"
)

// =============================================================================
// Deployment Planner
// =============================================================================

// largeGraphNodes is the node count above which validation warns.
const largeGraphNodes = 50

// Planner turns manifests into persisted, executable deployment plans.
type Planner struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
}

func NewPlanner(store *Store, metrics *Metrics, logger *slog.Logger) *Planner {
	return &Planner{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "planner"),
	}
}

// Plan parses a YAML manifest, rejects cycles, and persists a new plan at
// phase planned. Nothing is persisted when validation or cycle detection
// fails.
func (p *Planner) Plan(ctx context.Context, manifestYAML, environment string) (*domain.Plan, error) {
	m, err := manifest.Parse(manifestYAML)
	if err != nil {
		return nil, err
	}

	nodes := m.DomainNodes()
	edges := m.DomainEdges()

	if cycle := graph.DetectCycle(nodes, edges); cycle != nil {
		return nil, cycle
	}

	plan := &domain.Plan{
		ID:                domain.NewID(domain.PlanIDPrefix),
		Environment:       environment,
		KitName:           m.KitName,
		KitVersion:        m.KitVersion,
		Strategy:          m.Strategy,
		Nodes:             nodes,
		Edges:             edges,
		Phase:             domain.PlanPlanned,
		CompletedNodes:    []string{},
		FailedNodes:       []string{},
		RollbackStack:     []string{},
		EstimatedDuration: graph.EstimateDuration(len(nodes)),
		CreatedAt:         time.Now().UTC(),
	}

	if err := p.store.InsertPlan(ctx, plan); err != nil {
		return nil, err
	}

	p.metrics.PlansCreated.Inc()
	p.logger.Info("plan created",
		"plan", plan.ID, "environment", environment,
		"nodes", len(nodes), "estimated_duration", plan.EstimatedDuration)
	return plan, nil
}

// MigrationNeed names one concept whose schema must move before execution.
type MigrationNeed struct {
	Concept     string `json:"concept"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
}

// ValidationResult reports the outcome of validating a plan. When
// MigrationRequired is set the plan did not advance and Migrations lists
// what must be coordinated first.
type ValidationResult struct {
	Plan              *domain.Plan    `json:"plan"`
	MigrationRequired bool            `json:"migration_required"`
	Migrations        []MigrationNeed `json:"migrations,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// Validate checks a planned plan for execution readiness. Plans with
// migration nodes stay planned until their migrations are coordinated;
// otherwise the plan moves to validated, possibly with advisory warnings.
func (p *Planner) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	var result *ValidationResult
	err := retryConflict(func() error {
		plan, version, err := p.store.GetPlan(ctx, id)
		if err != nil {
			return err
		}
		if plan.Phase != domain.PlanPlanned {
			return &domain.PhaseError{Entity: id, Action: "validate", Current: string(plan.Phase)}
		}

		if migrations := plan.MigrationNodes(); len(migrations) > 0 {
			needs := make([]MigrationNeed, len(migrations))
			for i, n := range migrations {
				needs[i] = MigrationNeed{Concept: n.Target, FromVersion: n.FromVersion, ToVersion: n.ToVersion}
			}
			result = &ValidationResult{Plan: plan, MigrationRequired: true, Migrations: needs}
			return nil
		}

		var warnings []string
		if len(plan.Nodes) > largeGraphNodes {
			warnings = append(warnings, fmt.Sprintf("large graph: %d nodes", len(plan.Nodes)))
		}

		if err := plan.Transition(domain.PlanValidated); err != nil {
			return err
		}
		if err := p.store.UpdatePlan(ctx, plan, version); err != nil {
			return err
		}
		result = &ValidationResult{Plan: plan, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Execute runs a validated plan: nodes are marked completed in dependency
// order. failNodes is the failure-injection set; any node named there is
// marked failed instead, yielding a partial plan.
func (p *Planner) Execute(ctx context.Context, id string, failNodes []string) (*domain.Plan, error) {
	fail := make(map[string]bool, len(failNodes))
	for _, n := range failNodes {
		fail[n] = true
	}

	var result *domain.Plan
	err := retryConflict(func() error {
		plan, version, err := p.store.GetPlan(ctx, id)
		if err != nil {
			return err
		}
		if plan.Phase != domain.PlanValidated {
			return &domain.PhaseError{Entity: id, Action: "execute", Current: string(plan.Phase)}
		}

		order, err := graph.TopologicalSort(plan.Nodes, plan.Edges)
		if err != nil {
			return err
		}

		if err := plan.Transition(domain.PlanRunning); err != nil {
			return err
		}

		for _, nodeID := range order {
			node := plan.Node(nodeID)
			if fail[nodeID] {
				node.Status = domain.NodeFailed
				plan.FailedNodes = append(plan.FailedNodes, nodeID)
				continue
			}
			node.Status = domain.NodeCompleted
			plan.CompletedNodes = append(plan.CompletedNodes, nodeID)
		}

		final := domain.PlanCompleted
		if len(plan.FailedNodes) > 0 {
			final = domain.PlanPartial
		}
		if err := plan.Transition(final); err != nil {
			return err
		}

		if err := p.store.UpdatePlan(ctx, plan, version); err != nil {
			return err
		}
		result = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.metrics.PlanExecutions.WithLabelValues(string(result.Phase)).Inc()
	p.logger.Info("plan executed",
		"plan", id, "phase", result.Phase,
		"completed", len(result.CompletedNodes), "failed", len(result.FailedNodes))
	return result, nil
}

// Rollback reverses an executed plan: completed nodes are pushed onto the
// rollback stack last-applied first, their statuses reset, and the plan
// moves to its terminal rolledback phase.
func (p *Planner) Rollback(ctx context.Context, id string) (*domain.Plan, error) {
	var result *domain.Plan
	err := retryConflict(func() error {
		plan, version, err := p.store.GetPlan(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.ValidatePlanTransition(plan.Phase, domain.PlanRolledBack); err != nil {
			return &domain.PhaseError{Entity: id, Action: "rollback", Current: string(plan.Phase)}
		}

		for i := len(plan.CompletedNodes) - 1; i >= 0; i-- {
			nodeID := plan.CompletedNodes[i]
			plan.RollbackStack = append(plan.RollbackStack, nodeID)
			if node := plan.Node(nodeID); node != nil {
				node.Status = domain.NodePending
			}
		}
		plan.CompletedNodes = []string{}

		if err := plan.Transition(domain.PlanRolledBack); err != nil {
			return err
		}
		if err := p.store.UpdatePlan(ctx, plan, version); err != nil {
			return err
		}
		result = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("plan rolled back", "plan", id, "stack_depth", len(result.RollbackStack))
	return result, nil
}

// PlanStatus is the read-only execution view of a plan.
type PlanStatus struct {
	ID                string           `json:"id"`
	Phase             domain.PlanPhase `json:"phase"`
	Progress          float64          `json:"progress"`
	ActiveNodes       []string         `json:"active_nodes"`
	CompletedNodes    []string         `json:"completed_nodes"`
	FailedNodes       []string         `json:"failed_nodes"`
	EstimatedDuration int              `json:"estimated_duration"`
}

// Status reports phase and progress for a plan.
func (p *Planner) Status(ctx context.Context, id string) (*PlanStatus, error) {
	plan, _, err := p.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PlanStatus{
		ID:                plan.ID,
		Phase:             plan.Phase,
		Progress:          plan.Progress(),
		ActiveNodes:       plan.ActiveNodes(),
		CompletedNodes:    plan.CompletedNodes,
		FailedNodes:       plan.FailedNodes,
		EstimatedDuration: plan.EstimatedDuration,
	}, nil
}

// Get returns a plan by id.
func (p *Planner) Get(ctx context.Context, id string) (*domain.Plan, error) {
	plan, _, err := p.store.GetPlan(ctx, id)
	return plan, err
}
