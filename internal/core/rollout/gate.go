package rollout

import (
	"fmt"

	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Health Gate
// =============================================================================

// GateMetrics are the observed signals a gate decision is made from.
// ErrorRate is the fraction of failed targets among the most recent
// checks; LatencyP99 is the worst observed probe latency.
type GateMetrics struct {
	ErrorRate  float64
	LatencyP99 int64 // milliseconds
}

// GateDecision is the result of evaluating success criteria.
type GateDecision struct {
	Pass       bool
	Violations []string
}

// EvaluateGate checks observed metrics against the rollout's success
// criteria. A failed verdict always violates; degraded violates only
// when it breaches a threshold.
func EvaluateGate(criteria domain.SuccessCriteria, verdict domain.HealthStatus, metrics GateMetrics) GateDecision {
	var violations []string

	if verdict == domain.HealthFailed {
		violations = append(violations, "plan health verdict is failed")
	}
	if metrics.ErrorRate > criteria.MaxErrorRate {
		violations = append(violations,
			fmt.Sprintf("error rate %.3f exceeds %.3f", metrics.ErrorRate, criteria.MaxErrorRate))
	}
	if criteria.MaxLatencyP99 > 0 && metrics.LatencyP99 > criteria.MaxLatencyP99 {
		violations = append(violations,
			fmt.Sprintf("p99 latency %dms exceeds %dms", metrics.LatencyP99, criteria.MaxLatencyP99))
	}

	return GateDecision{Pass: len(violations) == 0, Violations: violations}
}
