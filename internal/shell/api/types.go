package api

import (
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Request Types
// =============================================================================

// CreatePlanRequest creates a deployment plan from a manifest.
type CreatePlanRequest struct {
	Manifest    string `json:"manifest"`
	Environment string `json:"environment"`
}

// ExecutePlanRequest runs a validated plan. FailNodes is the
// failure-injection set used to exercise partial outcomes.
type ExecutePlanRequest struct {
	FailNodes []string `json:"fail_nodes,omitempty"`
}

// BuildArtifactRequest stores a content-addressed artifact.
type BuildArtifactRequest struct {
	Concept        string   `json:"concept"`
	Spec           string   `json:"spec"`
	Implementation string   `json:"implementation"`
	Deps           []string `json:"deps,omitempty"`
}

// GCArtifactsRequest triggers a garbage collection pass.
type GCArtifactsRequest struct {
	OlderThan    time.Time `json:"older_than"`
	KeepVersions int       `json:"keep_versions"`
}

// PlanMigrationRequest plans a schema migration for a concept.
type PlanMigrationRequest struct {
	Concept     string `json:"concept"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
}

// BeginRolloutRequest starts progressive delivery for a plan.
type BeginRolloutRequest struct {
	Plan            string                 `json:"plan"`
	Strategy        string                 `json:"strategy"`
	Steps           []domain.Step          `json:"steps"`
	SuccessCriteria domain.SuccessCriteria `json:"success_criteria"`
	AutoRollback    bool                   `json:"auto_rollback"`
}

// PauseRolloutRequest pauses a rollout with a reason.
type PauseRolloutRequest struct {
	Reason string `json:"reason"`
}

// CheckUnitRequest probes a single unit.
type CheckUnitRequest struct {
	Target string `json:"target"`
}

// CheckLinkRequest probes a link across its units.
type CheckLinkRequest struct {
	Link  string   `json:"link"`
	Units []string `json:"units"`
}

// CheckInvariantRequest evaluates a registered invariant against a unit.
type CheckInvariantRequest struct {
	Unit      string `json:"unit"`
	Invariant string `json:"invariant"`
}

// =============================================================================
// Response Types
// =============================================================================

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse reports readiness with per-dependency checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// BuildArtifactResponse wraps a built or deduplicated artifact.
type BuildArtifactResponse struct {
	Artifact *domain.Artifact `json:"artifact"`
	Created  bool             `json:"created"`
}

// GCArtifactsResponse summarizes a collection pass.
type GCArtifactsResponse struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
}

// AdvanceRolloutResponse reports a rollout intent outcome.
type AdvanceRolloutResponse struct {
	Outcome string          `json:"outcome"`
	Rollout *domain.Rollout `json:"rollout"`
}
