package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/rollout"
)

// =============================================================================
// Rollout Controller
// =============================================================================

// Rollouts drives progressive delivery for executed plans. Intents against
// the same rollout (advance, pause, resume, abort) are serialized through
// a per-rollout mutex so interleaved calls cannot skip or repeat a step.
type Rollouts struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRollouts(store *Store, metrics *Metrics, logger *slog.Logger) *Rollouts {
	return &Rollouts{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "rollouts"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *Rollouts) lock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// release drops the per-rollout mutex once the rollout is terminal.
// Callers already blocked on the old mutex still serialize against each
// other; a fresh mutex only matters for later calls, which hit the
// terminal-state guards anyway.
func (r *Rollouts) release(id string, ro *domain.Rollout) {
	if ro == nil || !ro.Status.Terminal() {
		return
	}
	r.mu.Lock()
	delete(r.locks, id)
	r.mu.Unlock()
}

// Begin starts a rollout for a plan. The rollout opens at step zero with
// that step's traffic weight already applied.
func (r *Rollouts) Begin(ctx context.Context, planID, strategy string, steps []domain.Step, criteria domain.SuccessCriteria, autoRollback bool) (*domain.Rollout, error) {
	if _, _, err := r.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateSteps(steps); err != nil {
		return nil, err
	}

	ro := &domain.Rollout{
		ID:              domain.NewID(domain.RolloutIDPrefix),
		Plan:            planID,
		Strategy:        parsed,
		Steps:           steps,
		CurrentStep:     0,
		CurrentWeight:   steps[0].Weight,
		Status:          domain.RolloutInProgress,
		SuccessCriteria: criteria,
		AutoRollback:    autoRollback,
		StartedAt:       time.Now().UTC(),
	}
	if err := r.store.InsertRollout(ctx, ro); err != nil {
		return nil, err
	}

	r.logger.Info("rollout started",
		"rollout", ro.ID, "plan", planID,
		"strategy", parsed, "steps", len(steps), "weight", ro.CurrentWeight)
	return ro, nil
}

// Advance moves the rollout one step forward. Advancing a completed
// rollout is a no-op success; a paused rollout does not move; an aborted
// rollout is a state conflict.
func (r *Rollouts) Advance(ctx context.Context, id string) (rollout.Outcome, *domain.Rollout, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	var outcome rollout.Outcome
	var current *domain.Rollout
	err := retryConflict(func() error {
		ro, version, err := r.store.GetRollout(ctx, id)
		if err != nil {
			return err
		}
		outcome = rollout.Advance(ro)
		current = ro
		if outcome == rollout.OutcomeAborted {
			return &domain.PhaseError{Entity: id, Action: "advance", Current: string(ro.Status)}
		}
		if !outcome.Mutated() {
			return nil
		}
		return r.store.UpdateRollout(ctx, ro, version)
	})
	if err != nil {
		r.release(id, current)
		return "", nil, err
	}

	if outcome.Mutated() {
		r.metrics.RolloutAdvances.Inc()
		r.logger.Info("rollout advanced",
			"rollout", id, "outcome", outcome,
			"step", current.CurrentStep, "weight", current.CurrentWeight)
	}
	r.release(id, current)
	return outcome, current, nil
}

// Pause pauses a rollout, recording the reason. Step and weight are
// untouched so Resume continues where the rollout stopped.
func (r *Rollouts) Pause(ctx context.Context, id, reason string) (*domain.Rollout, error) {
	return r.applyIntent(ctx, id, func(ro *domain.Rollout) error {
		return rollout.Pause(ro, reason)
	})
}

// Resume resumes a paused rollout.
func (r *Rollouts) Resume(ctx context.Context, id string) (*domain.Rollout, error) {
	return r.applyIntent(ctx, id, rollout.Resume)
}

// Abort terminates a rollout and drops its traffic weight to zero.
// Aborting a completed rollout is a no-op success.
func (r *Rollouts) Abort(ctx context.Context, id string) (rollout.Outcome, *domain.Rollout, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	var outcome rollout.Outcome
	var current *domain.Rollout
	err := retryConflict(func() error {
		ro, version, err := r.store.GetRollout(ctx, id)
		if err != nil {
			return err
		}
		outcome = rollout.Abort(ro)
		current = ro
		if outcome == rollout.OutcomeAlreadyComplete {
			return nil
		}
		return r.store.UpdateRollout(ctx, ro, version)
	})
	if err != nil {
		r.release(id, current)
		return "", nil, err
	}

	if outcome == rollout.OutcomeAborted {
		r.metrics.RolloutAborts.Inc()
		r.logger.Info("rollout aborted", "rollout", id)
	}
	r.release(id, current)
	return outcome, current, nil
}

// RolloutStatus is the read-only progress view of a rollout.
type RolloutStatus struct {
	ID             string               `json:"id"`
	Plan           string               `json:"plan"`
	Strategy       domain.Strategy      `json:"strategy"`
	CurrentStep    int                  `json:"current_step"`
	CurrentWeight  int                  `json:"current_weight"`
	Status         domain.RolloutStatus `json:"status"`
	PauseReason    string               `json:"pause_reason,omitempty"`
	ElapsedSeconds int64                `json:"elapsed_seconds"`
}

// Status reports step, weight, status, and elapsed time for a rollout.
func (r *Rollouts) Status(ctx context.Context, id string) (*RolloutStatus, error) {
	ro, _, err := r.store.GetRollout(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RolloutStatus{
		ID:             ro.ID,
		Plan:           ro.Plan,
		Strategy:       ro.Strategy,
		CurrentStep:    ro.CurrentStep,
		CurrentWeight:  ro.CurrentWeight,
		Status:         ro.Status,
		PauseReason:    ro.PauseReason,
		ElapsedSeconds: ro.Elapsed(time.Now().UTC()),
	}, nil
}

// Get returns a rollout by id.
func (r *Rollouts) Get(ctx context.Context, id string) (*domain.Rollout, error) {
	ro, _, err := r.store.GetRollout(ctx, id)
	return ro, err
}

func (r *Rollouts) applyIntent(ctx context.Context, id string, apply func(*domain.Rollout) error) (*domain.Rollout, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	var current *domain.Rollout
	err := retryConflict(func() error {
		ro, version, err := r.store.GetRollout(ctx, id)
		if err != nil {
			return err
		}
		current = ro
		if err := apply(ro); err != nil {
			return err
		}
		return r.store.UpdateRollout(ctx, ro, version)
	})
	r.release(id, current)
	if err != nil {
		return nil, err
	}
	return current, nil
}
