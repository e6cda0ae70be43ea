package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/health"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Health Aggregator
// =============================================================================

// Prober performs one probe against a target. The default prober runs a
// write-read-delete round trip through the store; deployments substitute
// a prober that reaches the real runtime.
type Prober func(ctx context.Context, target string) error

// InvariantResult is the outcome of one invariant evaluation.
type InvariantResult struct {
	OK       bool
	Expected string
	Actual   string
}

// Invariant is a pluggable health predicate over a unit.
type Invariant func(ctx context.Context, unit string) (InvariantResult, error)

// Health probes units and links, aggregates verdicts per plan, and
// records every probe as an append-only check.
type Health struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
	prober  Prober

	mu         sync.RWMutex
	invariants map[string]Invariant
}

func NewHealth(store *Store, metrics *Metrics, logger *slog.Logger, prober Prober) *Health {
	h := &Health{
		store:      store,
		metrics:    metrics,
		logger:     logger.With("component", "health"),
		prober:     prober,
		invariants: make(map[string]Invariant),
	}
	if h.prober == nil {
		h.prober = func(ctx context.Context, target string) error {
			return store.ProbeRoundTrip(ctx, "probe:"+target)
		}
	}
	return h
}

// CheckUnit probes a single unit and records the result. Latency above
// the degraded threshold downgrades a successful probe.
func (h *Health) CheckUnit(ctx context.Context, target string) (*domain.HealthCheck, error) {
	start := time.Now()
	probeErr := h.prober(ctx, target)
	latency := time.Since(start).Milliseconds()

	status := health.ClassifyLatency(latency)
	var detail map[string]string
	if probeErr != nil {
		status = domain.HealthFailed
		detail = map[string]string{"error": probeErr.Error()}
	}

	return h.record(ctx, target, domain.CheckConcept, status, latency, detail)
}

// CheckLink probes every unit behind a link in parallel and records a
// single check for the link. The whole round trip runs under the link
// timeout budget; exceeding it fails the link outright. Individual unit
// failures degrade the link, or fail it when no unit answered.
func (h *Health) CheckLink(ctx context.Context, link string, units []string) (*domain.HealthCheck, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("link %s: no units to probe", link)
	}

	probeCtx, cancel := context.WithTimeout(ctx, health.LinkTimeoutMS*time.Millisecond)
	defer cancel()

	start := time.Now()
	failures := make([]error, len(units))
	g, gctx := errgroup.WithContext(probeCtx)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			failures[i] = h.prober(gctx, unit)
			return nil
		})
	}
	g.Wait()
	latency := time.Since(start).Milliseconds()

	failed := 0
	detail := make(map[string]string)
	for i, err := range failures {
		if err != nil {
			failed++
			detail[units[i]] = err.Error()
		}
	}

	status := domain.HealthHealthy
	switch {
	case latency > health.LinkTimeoutMS:
		status = domain.HealthFailed
		detail["timeout"] = strconv.FormatInt(latency, 10) + "ms"
	case failed == len(units):
		status = domain.HealthFailed
	case failed > 0:
		status = domain.HealthDegraded
	}
	if len(detail) == 0 {
		detail = nil
	}

	return h.record(ctx, link, domain.CheckLink, status, latency, detail)
}

// PlanVerdict is the aggregated health of a plan's targets.
type PlanVerdict struct {
	Plan           string              `json:"plan"`
	Environment    string              `json:"environment"`
	Status         domain.HealthStatus `json:"status"`
	Healthy        []string            `json:"healthy"`
	Degraded       []string            `json:"degraded"`
	Failed         []string            `json:"failed"`
	ErrorRate      float64             `json:"error_rate"`
	WorstLatencyMS int64               `json:"worst_latency_ms"`
}

// CheckPlan folds the most recent check per plan target into one verdict
// and records it. Targets that have never been probed count as degraded.
// An empty environment falls back to the environment the plan was
// created for.
func (h *Health) CheckPlan(ctx context.Context, planID, environment string) (*PlanVerdict, error) {
	plan, _, err := h.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if environment == "" {
		environment = plan.Environment
	}

	seen := make(map[string]bool, len(plan.Nodes))
	var targets []string
	for _, n := range plan.Nodes {
		if !seen[n.Target] {
			seen[n.Target] = true
			targets = append(targets, n.Target)
		}
	}

	latest, err := h.store.LatestChecks(ctx, targets)
	if err != nil {
		return nil, err
	}

	v := health.Aggregate(targets, latest)
	detail := map[string]string{
		"environment": environment,
		"healthy":     strconv.Itoa(len(v.Healthy)),
		"degraded":    strconv.Itoa(len(v.Degraded)),
		"failed":      strconv.Itoa(len(v.Failed)),
	}
	if _, err := h.record(ctx, planID, domain.CheckPlan, v.Status, v.WorstLatencyMS, detail); err != nil {
		return nil, err
	}

	return &PlanVerdict{
		Plan:           planID,
		Environment:    environment,
		Status:         v.Status,
		Healthy:        v.Healthy,
		Degraded:       v.Degraded,
		Failed:         v.Failed,
		ErrorRate:      v.ErrorRate(),
		WorstLatencyMS: v.WorstLatencyMS,
	}, nil
}

// RegisterInvariant registers a named invariant predicate.
func (h *Health) RegisterInvariant(name string, fn Invariant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invariants[name] = fn
}

// CheckInvariant evaluates a registered invariant against a unit and
// records the result. A violation carries the expected and actual values.
func (h *Health) CheckInvariant(ctx context.Context, unit, name string) (*domain.HealthCheck, error) {
	h.mu.RLock()
	fn, ok := h.invariants[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("invariant %q: %w", name, ErrNotFound)
	}

	start := time.Now()
	result, err := fn(ctx, unit)
	latency := time.Since(start).Milliseconds()

	status := domain.HealthHealthy
	detail := map[string]string{"invariant": name}
	switch {
	case err != nil:
		status = domain.HealthFailed
		detail["error"] = err.Error()
	case !result.OK:
		status = domain.HealthFailed
		detail["expected"] = result.Expected
		detail["actual"] = result.Actual
	}

	return h.record(ctx, unit, domain.CheckInvariant, status, latency, detail)
}

func (h *Health) record(ctx context.Context, target string, kind domain.CheckKind, status domain.HealthStatus, latency int64, detail map[string]string) (*domain.HealthCheck, error) {
	check := &domain.HealthCheck{
		ID:        domain.NewID(domain.CheckIDPrefix),
		Target:    target,
		Kind:      kind,
		Status:    status,
		LatencyMS: latency,
		Detail:    detail,
		CheckedAt: time.Now().UTC(),
	}
	if err := h.store.AppendCheck(ctx, check); err != nil {
		return nil, err
	}

	h.metrics.ProbeLatency.Observe(float64(latency) / 1000)
	if status != domain.HealthHealthy {
		h.logger.Warn("probe unhealthy",
			"target", target, "kind", kind, "status", status, "latency_ms", latency)
	}
	return check, nil
}
