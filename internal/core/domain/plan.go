// Package domain defines the typed entities of the orchestration core.
// Phase and status enums carry explicit transition tables so illegal
// combinations are ruled out at the edge instead of checked as strings
// deep inside the engine.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Plan Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// =============================================================================
// Plan Phase
// =============================================================================

type PlanPhase string

const (
	PlanPlanned    PlanPhase = "planned"
	PlanValidated  PlanPhase = "validated"
	PlanRunning    PlanPhase = "running"
	PlanPartial    PlanPhase = "partial"
	PlanCompleted  PlanPhase = "completed"
	PlanRolledBack PlanPhase = "rolledback"
)

// planTransitions defines the allowed phase transitions.
var planTransitions = map[PlanPhase][]PlanPhase{
	PlanPlanned:    {PlanValidated},
	PlanValidated:  {PlanRunning},
	PlanRunning:    {PlanPartial, PlanCompleted},
	PlanPartial:    {PlanRolledBack},
	PlanCompleted:  {PlanRolledBack},
	PlanRolledBack: {}, // Terminal state
}

// =============================================================================
// Nodes and Edges
// =============================================================================

// NodeKind classifies what a plan node deploys.
type NodeKind string

const (
	NodeService   NodeKind = "service"
	NodeFunction  NodeKind = "function"
	NodeMigration NodeKind = "migration"
)

// NodeStatus tracks per-node execution state within a plan.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

// Node is a single deployable unit in a plan graph.
type Node struct {
	ID     string     `json:"id"`
	Kind   NodeKind   `json:"kind"`
	Target string     `json:"target"`
	Status NodeStatus `json:"status"`

	// FromVersion/ToVersion are set for migration nodes only.
	FromVersion int `json:"from_version,omitempty"`
	ToVersion   int `json:"to_version,omitempty"`
}

// Edge declares that From must be deployed before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// =============================================================================
// Plan
// =============================================================================

// Plan is a validated, cycle-free execution graph over deployable units.
type Plan struct {
	ID                string    `json:"id"`
	Environment       string    `json:"environment"`
	KitName           string    `json:"kit_name,omitempty"`
	KitVersion        string    `json:"kit_version,omitempty"`
	Strategy          string    `json:"strategy,omitempty"`
	Nodes             []Node    `json:"nodes"`
	Edges             []Edge    `json:"edges"`
	Phase             PlanPhase `json:"phase"`
	CompletedNodes    []string  `json:"completed_nodes"`
	FailedNodes       []string  `json:"failed_nodes"`
	RollbackStack     []string  `json:"rollback_stack"` // most-recent-first
	EstimatedDuration int       `json:"estimated_duration"`
	CreatedAt         time.Time `json:"created_at"`
}

// Transition attempts to move the plan to a new phase.
func (p *Plan) Transition(to PlanPhase) error {
	if err := ValidatePlanTransition(p.Phase, to); err != nil {
		return fmt.Errorf("plan %s: %s -> %s: %w", p.ID, p.Phase, to, err)
	}
	p.Phase = to
	return nil
}

// ValidatePlanTransition checks if a phase transition is valid.
func ValidatePlanTransition(from, to PlanPhase) error {
	allowed, exists := planTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}
	for _, p := range allowed {
		if p == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// Node returns the node with the given id, or nil.
func (p *Plan) Node(id string) *Node {
	for i := range p.Nodes {
		if p.Nodes[i].ID == id {
			return &p.Nodes[i]
		}
	}
	return nil
}

// Progress reports execution progress in [0,1].
func (p *Plan) Progress() float64 {
	if len(p.Nodes) == 0 {
		return 0
	}
	return float64(len(p.CompletedNodes)) / float64(len(p.Nodes))
}

// ActiveNodes returns node ids that have neither completed nor failed.
func (p *Plan) ActiveNodes() []string {
	done := make(map[string]bool, len(p.CompletedNodes)+len(p.FailedNodes))
	for _, id := range p.CompletedNodes {
		done[id] = true
	}
	for _, id := range p.FailedNodes {
		done[id] = true
	}
	var active []string
	for _, n := range p.Nodes {
		if !done[n.ID] {
			active = append(active, n.ID)
		}
	}
	return active
}

// MigrationNodes returns the nodes that declare schema changes.
func (p *Plan) MigrationNodes() []Node {
	var out []Node
	for _, n := range p.Nodes {
		if n.Kind == NodeMigration {
			out = append(out, n)
		}
	}
	return out
}
