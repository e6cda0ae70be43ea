package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/rollout"
)

// =============================================================================
// Gatekeeper
// =============================================================================

// Gatekeeper periodically evaluates every in-progress rollout against its
// success criteria: passing rollouts advance a step, violating rollouts
// abort when auto-rollback is set and pause otherwise. It is built
// entirely on the public rollout intents, so manual control and the
// worker cannot diverge.
type Gatekeeper struct {
	rollouts *Rollouts
	health   *Health
	interval time.Duration
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewGatekeeper(rollouts *Rollouts, health *Health, interval time.Duration, logger *slog.Logger) *Gatekeeper {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &Gatekeeper{
		rollouts: rollouts,
		health:   health,
		interval: interval,
		logger:   logger.With("component", "gatekeeper"),
	}
}

func (g *Gatekeeper) Start() {
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.wg.Add(1)
	go g.run()
	g.logger.Info("gatekeeper started", "interval", g.interval)
}

func (g *Gatekeeper) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
}

func (g *Gatekeeper) run() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.EvaluateAll(g.ctx)
		}
	}
}

// EvaluateAll runs one gate pass over every in-progress rollout.
func (g *Gatekeeper) EvaluateAll(ctx context.Context) {
	active, err := g.rollouts.store.ListRolloutsByStatus(ctx, domain.RolloutInProgress)
	if err != nil {
		g.logger.Error("failed to list rollouts", "error", err)
		return
	}

	for _, ro := range active {
		if err := g.evaluate(ctx, &ro); err != nil {
			g.logger.Error("gate evaluation failed", "rollout", ro.ID, "error", err)
		}
	}
}

func (g *Gatekeeper) evaluate(ctx context.Context, ro *domain.Rollout) error {
	verdict, err := g.health.CheckPlan(ctx, ro.Plan, "")
	if err != nil {
		return err
	}

	decision := rollout.EvaluateGate(ro.SuccessCriteria, verdict.Status, rollout.GateMetrics{
		ErrorRate:  verdict.ErrorRate,
		LatencyP99: verdict.WorstLatencyMS,
	})

	if decision.Pass {
		outcome, _, err := g.rollouts.Advance(ctx, ro.ID)
		if err != nil {
			return err
		}
		g.logger.Info("gate passed", "rollout", ro.ID, "outcome", outcome)
		return nil
	}

	reason := strings.Join(decision.Violations, "; ")
	if ro.AutoRollback {
		if _, _, err := g.rollouts.Abort(ctx, ro.ID); err != nil {
			return err
		}
		g.logger.Warn("gate violated, rollout aborted", "rollout", ro.ID, "violations", reason)
		return nil
	}

	if _, err := g.rollouts.Pause(ctx, ro.ID, reason); err != nil {
		return err
	}
	g.logger.Warn("gate violated, rollout paused", "rollout", ro.ID, "violations", reason)
	return nil
}
