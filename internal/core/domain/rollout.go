package domain

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Rollout Errors
// =============================================================================

var (
	ErrUnknownStrategy = errors.New("unknown rollout strategy")
	ErrNoSteps         = errors.New("rollout requires at least one step")
	ErrInvalidWeight   = errors.New("step weight must be between 0 and 100")
)

// =============================================================================
// Strategy
// =============================================================================

type Strategy string

const (
	StrategyCanary    Strategy = "canary"
	StrategyBlueGreen Strategy = "blue-green"
	StrategyRolling   Strategy = "rolling"
)

// ValidStrategies lists the supported progressive-delivery strategies.
var ValidStrategies = []Strategy{StrategyCanary, StrategyBlueGreen, StrategyRolling}

// ParseStrategy validates a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	for _, v := range ValidStrategies {
		if Strategy(s) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %v)", ErrUnknownStrategy, s, ValidStrategies)
}

// =============================================================================
// Rollout Status
// =============================================================================

type RolloutStatus string

const (
	RolloutInProgress RolloutStatus = "in_progress"
	RolloutPaused     RolloutStatus = "paused"
	RolloutCompleted  RolloutStatus = "completed"
	RolloutAborted    RolloutStatus = "aborted"
)

// Terminal reports whether no further transitions are permitted.
func (s RolloutStatus) Terminal() bool {
	return s == RolloutCompleted || s == RolloutAborted
}

// =============================================================================
// Steps and Criteria
// =============================================================================

// Step is one traffic weight in a rollout sequence.
type Step struct {
	Weight       int `json:"weight"` // percentage in [0,100]
	PauseSeconds int `json:"pause_seconds"`
}

// SuccessCriteria are the thresholds a rollout must satisfy to advance.
type SuccessCriteria struct {
	MaxErrorRate  float64 `json:"max_error_rate"`  // fraction in [0,1]
	MaxLatencyP99 int64   `json:"max_latency_p99"` // milliseconds
}

// =============================================================================
// Rollout
// =============================================================================

// Rollout is the progressive-delivery state machine for one plan. Traffic
// weights are advisory: a traffic-shifting collaborator applies
// CurrentWeight out-of-band.
type Rollout struct {
	ID              string          `json:"id"`
	Plan            string          `json:"plan"`
	Strategy        Strategy        `json:"strategy"`
	Steps           []Step          `json:"steps"`
	CurrentStep     int             `json:"current_step"`
	CurrentWeight   int             `json:"current_weight"`
	Status          RolloutStatus   `json:"status"`
	SuccessCriteria SuccessCriteria `json:"success_criteria"`
	AutoRollback    bool            `json:"auto_rollback"`
	PauseReason     string          `json:"pause_reason,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
}

// ValidateSteps checks the step list for begin.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range steps {
		if s.Weight < 0 || s.Weight > 100 {
			return fmt.Errorf("step %d: %w (got %d)", i, ErrInvalidWeight, s.Weight)
		}
	}
	return nil
}

// Elapsed reports seconds since the rollout started.
func (r *Rollout) Elapsed(now time.Time) int64 {
	return int64(now.Sub(r.StartedAt).Seconds())
}
