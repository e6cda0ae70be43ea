// Package health provides pure functions for health verdict aggregation
// and latency classification. No I/O, no side effects.
package health

import (
	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Latency Thresholds
// =============================================================================

const (
	// DegradedLatencyMS is the unit probe latency above which a target
	// is reported degraded rather than healthy.
	DegradedLatencyMS = 500

	// LinkTimeoutMS is the round-trip budget for a link probe; beyond
	// this the link is reported failed.
	LinkTimeoutMS = 5000
)

// ClassifyLatency maps a unit probe latency to a health status.
func ClassifyLatency(latencyMS int64) domain.HealthStatus {
	if latencyMS > DegradedLatencyMS {
		return domain.HealthDegraded
	}
	return domain.HealthHealthy
}

// =============================================================================
// Verdict Aggregation
// =============================================================================

// Verdict is the aggregated health of a whole plan.
type Verdict struct {
	Status   domain.HealthStatus
	Healthy  []string
	Degraded []string
	Failed   []string

	// WorstLatencyMS is the highest latency among the aggregated checks.
	WorstLatencyMS int64
}

// Aggregate folds the most recent check per target into a plan verdict:
// any failed check yields failed, else any degraded yields degraded,
// else healthy. Targets with no recorded check count as degraded - an
// unprobed unit cannot be assumed healthy.
func Aggregate(targets []string, latest map[string]domain.HealthCheck) Verdict {
	v := Verdict{Status: domain.HealthHealthy}

	for _, target := range targets {
		check, ok := latest[target]
		if !ok {
			v.Degraded = append(v.Degraded, target)
			continue
		}
		if check.LatencyMS > v.WorstLatencyMS {
			v.WorstLatencyMS = check.LatencyMS
		}
		switch check.Status {
		case domain.HealthFailed:
			v.Failed = append(v.Failed, target)
		case domain.HealthDegraded:
			v.Degraded = append(v.Degraded, target)
		default:
			v.Healthy = append(v.Healthy, target)
		}
	}

	if len(v.Failed) > 0 {
		v.Status = domain.HealthFailed
	} else if len(v.Degraded) > 0 {
		v.Status = domain.HealthDegraded
	}
	return v
}

// ErrorRate reports the fraction of targets whose latest check failed.
func (v Verdict) ErrorRate() float64 {
	total := len(v.Healthy) + len(v.Degraded) + len(v.Failed)
	if total == 0 {
		return 0
	}
	return float64(len(v.Failed)) / float64(total)
}
