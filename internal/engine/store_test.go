package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenDB(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPlan(id string) *domain.Plan {
	return &domain.Plan{
		ID:          id,
		Environment: "staging",
		Nodes: []domain.Node{
			{ID: "api", Kind: domain.NodeService, Target: "api-svc", Status: domain.NodePending},
		},
		Phase:             domain.PlanPlanned,
		CompletedNodes:    []string{},
		FailedNodes:       []string{},
		RollbackStack:     []string{},
		EstimatedDuration: 60,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestStore_PlanRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("plan_rt")))

	got, version, err := store.GetPlan(ctx, "plan_rt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, "staging", got.Environment)
	assert.Equal(t, domain.PlanPlanned, got.Phase)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "api-svc", got.Nodes[0].Target)
}

func TestStore_GetMissingPlan(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.GetPlan(context.Background(), "plan_ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("plan_v")))

	plan, version, err := store.GetPlan(ctx, "plan_v")
	require.NoError(t, err)

	plan.Phase = domain.PlanValidated
	require.NoError(t, store.UpdatePlan(ctx, plan, version))

	got, newVersion, err := store.GetPlan(ctx, "plan_v")
	require.NoError(t, err)
	assert.Equal(t, version+1, newVersion)
	assert.Equal(t, domain.PlanValidated, got.Phase)
}

func TestStore_StaleVersionConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("plan_cas")))

	plan, version, err := store.GetPlan(ctx, "plan_cas")
	require.NoError(t, err)

	// First writer wins.
	plan.Phase = domain.PlanValidated
	require.NoError(t, store.UpdatePlan(ctx, plan, version))

	// Second writer holds the stale version and must lose.
	err = store.UpdatePlan(ctx, plan, version)
	assert.ErrorIs(t, err, ErrConflict)

	got, _, err := store.GetPlan(ctx, "plan_cas")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanValidated, got.Phase)
}

func TestStore_UpdateMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdatePlan(context.Background(), testPlan("plan_nope"), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryConflict_BoundedRetries(t *testing.T) {
	calls := 0
	err := retryConflict(func() error {
		calls++
		return ErrConflict
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, conflictRetries, calls)
}

func TestRetryConflict_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := retryConflict(func() error {
		calls++
		return ErrNotFound
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestStore_ListRolloutsByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, status := range []domain.RolloutStatus{domain.RolloutInProgress, domain.RolloutPaused, domain.RolloutInProgress} {
		ro := &domain.Rollout{
			ID:       domain.NewID(domain.RolloutIDPrefix),
			Plan:     "plan_x",
			Strategy: domain.StrategyCanary,
			Steps:    []domain.Step{{Weight: 10 * (i + 1)}},
			Status:   status,
		}
		require.NoError(t, store.InsertRollout(ctx, ro))
	}

	active, err := store.ListRolloutsByStatus(ctx, domain.RolloutInProgress)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	paused, err := store.ListRolloutsByStatus(ctx, domain.RolloutPaused)
	require.NoError(t, err)
	assert.Len(t, paused, 1)
}

func TestStore_LatestChecksPicksMostRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &domain.HealthCheck{
		ID: "chk_1", Target: "api-svc", Kind: domain.CheckConcept,
		Status: domain.HealthFailed, LatencyMS: 900, CheckedAt: time.Now().UTC(),
	}
	newer := &domain.HealthCheck{
		ID: "chk_2", Target: "api-svc", Kind: domain.CheckConcept,
		Status: domain.HealthHealthy, LatencyMS: 20, CheckedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendCheck(ctx, older))
	require.NoError(t, store.AppendCheck(ctx, newer))

	latest, err := store.LatestChecks(ctx, []string{"api-svc", "unprobed"})
	require.NoError(t, err)

	require.Contains(t, latest, "api-svc")
	assert.Equal(t, "chk_2", latest["api-svc"].ID)
	assert.Equal(t, domain.HealthHealthy, latest["api-svc"].Status)
	assert.NotContains(t, latest, "unprobed")
}

func TestStore_ProbeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ProbeRoundTrip(ctx, "probe:test"))

	// Probe rows are cleaned up after each round trip.
	var count int
	require.NoError(t, store.DB().GetContext(ctx, &count, "SELECT COUNT(1) FROM probes"))
	assert.Zero(t, count)
}

func TestStore_ArtifactInsertAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	art := &domain.Artifact{
		Hash:      "abc123",
		Concept:   "Users",
		Location:  "artifacts/Users/abc123",
		SizeBytes: 42,
		BuiltAt:   time.Now().UTC(),
	}
	require.NoError(t, store.InsertArtifact(ctx, art))

	// Duplicate hash violates the primary key.
	assert.Error(t, store.InsertArtifact(ctx, art))

	got, err := store.GetArtifact(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Users", got.Concept)

	require.NoError(t, store.DeleteArtifacts(ctx, []string{"abc123"}))
	_, err = store.GetArtifact(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}
