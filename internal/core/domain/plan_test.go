package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTransition_ValidPath(t *testing.T) {
	p := &Plan{ID: "plan_test1", Phase: PlanPlanned}

	require.NoError(t, p.Transition(PlanValidated))
	require.NoError(t, p.Transition(PlanRunning))
	require.NoError(t, p.Transition(PlanCompleted))
	require.NoError(t, p.Transition(PlanRolledBack))

	assert.Equal(t, PlanRolledBack, p.Phase)
}

func TestPlanTransition_SkippingPhaseRejected(t *testing.T) {
	p := &Plan{ID: "plan_test2", Phase: PlanPlanned}

	err := p.Transition(PlanRunning)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PlanPlanned, p.Phase, "failed transition must not mutate")
}

func TestPlanTransition_RolledBackIsTerminal(t *testing.T) {
	p := &Plan{ID: "plan_test3", Phase: PlanRolledBack}

	assert.ErrorIs(t, p.Transition(PlanPlanned), ErrInvalidTransition)
	assert.ErrorIs(t, p.Transition(PlanRunning), ErrInvalidTransition)
}

func TestPlanTransition_RunningForks(t *testing.T) {
	assert.NoError(t, ValidatePlanTransition(PlanRunning, PlanPartial))
	assert.NoError(t, ValidatePlanTransition(PlanRunning, PlanCompleted))
	assert.Error(t, ValidatePlanTransition(PlanRunning, PlanValidated))
}

func TestPlanProgress(t *testing.T) {
	p := &Plan{
		Nodes: []Node{
			{ID: "a", Kind: NodeService, Target: "a-svc"},
			{ID: "b", Kind: NodeService, Target: "b-svc"},
			{ID: "c", Kind: NodeService, Target: "c-svc"},
			{ID: "d", Kind: NodeService, Target: "d-svc"},
		},
		CompletedNodes: []string{"a", "b", "c"},
	}

	assert.InDelta(t, 0.75, p.Progress(), 1e-9)
}

func TestPlanProgress_EmptyPlan(t *testing.T) {
	p := &Plan{}
	assert.Zero(t, p.Progress())
}

func TestPlanActiveNodes(t *testing.T) {
	p := &Plan{
		Nodes: []Node{
			{ID: "a"}, {ID: "b"}, {ID: "c"},
		},
		CompletedNodes: []string{"a"},
		FailedNodes:    []string{"c"},
	}

	assert.Equal(t, []string{"b"}, p.ActiveNodes())
}

func TestPlanMigrationNodes(t *testing.T) {
	p := &Plan{
		Nodes: []Node{
			{ID: "api", Kind: NodeService, Target: "api"},
			{ID: "users-schema", Kind: NodeMigration, Target: "Users", FromVersion: 1, ToVersion: 2},
		},
	}

	migrations := p.MigrationNodes()
	require.Len(t, migrations, 1)
	assert.Equal(t, "Users", migrations[0].Target)
	assert.Equal(t, 2, migrations[0].ToVersion)
}

func TestMigrationTransition_ForwardOnly(t *testing.T) {
	m := &Migration{ID: "mig_test1", Phase: MigrationPlanned}

	require.NoError(t, m.Transition(MigrationExpanded))
	require.NoError(t, m.Transition(MigrationMigrated))
	require.NoError(t, m.Transition(MigrationCompleted))

	assert.ErrorIs(t, m.Transition(MigrationPlanned), ErrInvalidTransition)
	assert.ErrorIs(t, m.Transition(MigrationMigrated), ErrInvalidTransition)
}

func TestMigrationTransition_RollbackOnlyFromMigrated(t *testing.T) {
	m := &Migration{ID: "mig_test2", Phase: MigrationMigrated}
	require.NoError(t, m.Transition(MigrationRolledBack))

	fresh := &Migration{ID: "mig_test3", Phase: MigrationPlanned}
	assert.ErrorIs(t, fresh.Transition(MigrationRolledBack), ErrInvalidTransition)
}

func TestMigrationProgress(t *testing.T) {
	m := &Migration{RecordsMigrated: 500, RecordsTotal: 2000}
	assert.InDelta(t, 0.25, m.Progress(), 1e-9)

	empty := &Migration{}
	assert.Zero(t, empty.Progress())
}

func TestPhaseError_NamesCurrentPhase(t *testing.T) {
	err := &PhaseError{Entity: "mig_x", Action: "migrate", Current: "planned"}
	assert.Contains(t, err.Error(), "mig_x")
	assert.Contains(t, err.Error(), "migrate")
	assert.Contains(t, err.Error(), "planned")
}

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"canary", "blue-green", "rolling"} {
		s, err := ParseStrategy(valid)
		require.NoError(t, err)
		assert.Equal(t, Strategy(valid), s)
	}

	_, err := ParseStrategy("linear")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestValidateSteps(t *testing.T) {
	assert.ErrorIs(t, ValidateSteps(nil), ErrNoSteps)
	assert.ErrorIs(t, ValidateSteps([]Step{{Weight: 101}}), ErrInvalidWeight)
	assert.ErrorIs(t, ValidateSteps([]Step{{Weight: -1}}), ErrInvalidWeight)
	assert.NoError(t, ValidateSteps([]Step{{Weight: 0}, {Weight: 100}}))
}

func TestRolloutStatusTerminal(t *testing.T) {
	assert.True(t, RolloutCompleted.Terminal())
	assert.True(t, RolloutAborted.Terminal())
	assert.False(t, RolloutInProgress.Terminal())
	assert.False(t, RolloutPaused.Terminal())
}

func TestNewID_PrefixAndLength(t *testing.T) {
	id := NewID(PlanIDPrefix)
	assert.Regexp(t, `^plan_[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewID(PlanIDPrefix))
}
