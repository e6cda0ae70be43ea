// Package rollout provides the pure step functions of the progressive
// delivery state machine. Advancement is pull-based: an external control
// loop decides when to call Advance, keeping this package free of timers
// and background work. No I/O, no side effects.
package rollout

import (
	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Advance Outcomes
// =============================================================================

// Outcome tags the result of a step-function call.
type Outcome string

const (
	// OutcomeAdvanced means the rollout moved to the next step.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeCompleted means this call drove the rollout to completion.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAlreadyComplete is a no-op success on a finished rollout.
	OutcomeAlreadyComplete Outcome = "already_complete"
	// OutcomePaused means the rollout is paused and did not move.
	OutcomePaused Outcome = "paused"
	// OutcomeAborted means the rollout was aborted and cannot move.
	OutcomeAborted Outcome = "aborted"
)

// Mutated reports whether the outcome changed the rollout record.
func (o Outcome) Mutated() bool {
	return o == OutcomeAdvanced || o == OutcomeCompleted
}

// =============================================================================
// Step Functions
// =============================================================================

// Advance moves the rollout one step forward and returns the outcome.
// currentStep is monotonically non-decreasing; once the step index would
// pass the last step, the rollout snaps to the final index at weight 100
// and completes. Completed and aborted rollouts are never mutated.
func Advance(r *domain.Rollout) Outcome {
	switch r.Status {
	case domain.RolloutCompleted:
		return OutcomeAlreadyComplete
	case domain.RolloutPaused:
		return OutcomePaused
	case domain.RolloutAborted:
		return OutcomeAborted
	}

	next := r.CurrentStep + 1
	if next >= len(r.Steps) {
		r.CurrentStep = len(r.Steps) - 1
		r.CurrentWeight = 100
		r.Status = domain.RolloutCompleted
		return OutcomeCompleted
	}

	r.CurrentStep = next
	r.CurrentWeight = r.Steps[next].Weight
	return OutcomeAdvanced
}

// Pause pauses an in-progress rollout without altering step or weight.
// Pausing an already-paused rollout just updates the reason.
func Pause(r *domain.Rollout, reason string) error {
	if r.Status.Terminal() {
		return &domain.PhaseError{Entity: r.ID, Action: "pause", Current: string(r.Status)}
	}
	r.Status = domain.RolloutPaused
	r.PauseReason = reason
	return nil
}

// Resume resumes a paused rollout. Resuming an in-progress rollout is a
// no-op success.
func Resume(r *domain.Rollout) error {
	if r.Status.Terminal() {
		return &domain.PhaseError{Entity: r.ID, Action: "resume", Current: string(r.Status)}
	}
	r.Status = domain.RolloutInProgress
	r.PauseReason = ""
	return nil
}

// Abort aborts a rollout, dropping traffic weight to zero. Returns
// OutcomeAlreadyComplete without mutating when the rollout finished.
func Abort(r *domain.Rollout) Outcome {
	if r.Status == domain.RolloutCompleted {
		return OutcomeAlreadyComplete
	}
	r.Status = domain.RolloutAborted
	r.CurrentWeight = 0
	return OutcomeAborted
}
