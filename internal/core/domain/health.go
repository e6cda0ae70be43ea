package domain

import "time"

// =============================================================================
// Health Status
// =============================================================================

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthFailed   HealthStatus = "failed"
)

// =============================================================================
// Check Kind
// =============================================================================

// CheckKind is the granularity a probe ran at.
type CheckKind string

const (
	CheckConcept   CheckKind = "concept"
	CheckLink      CheckKind = "link"
	CheckPlan      CheckKind = "plan"
	CheckInvariant CheckKind = "invariant"
)

// =============================================================================
// HealthCheck
// =============================================================================

// HealthCheck is one append-only probe record. Later probes against the
// same target supersede earlier ones; nothing is mutated in place.
type HealthCheck struct {
	ID        string            `json:"id"`
	Target    string            `json:"target"`
	Kind      CheckKind         `json:"kind"`
	Status    HealthStatus      `json:"status"`
	LatencyMS int64             `json:"latency_ms"`
	Detail    map[string]string `json:"detail,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}
