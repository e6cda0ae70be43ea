package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/artpar/shipyard/internal/core/migration"
)

// =============================================================================
// Migration Coordinator
// =============================================================================

// Coordinator drives expand/migrate/contract schema migrations. It records
// phase transitions only; executing each step against a real schema is a
// collaborator's job.
type Coordinator struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
}

func NewCoordinator(store *Store, metrics *Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "migrations"),
	}
}

// MigrationPlanResult is the tagged outcome of planning a migration.
// When NoMigrationNeeded is set the versions already match and nothing
// was persisted.
type MigrationPlanResult struct {
	NoMigrationNeeded bool              `json:"no_migration_needed"`
	Migration         *domain.Migration `json:"migration,omitempty"`
}

// PlanMigration plans the step sequence for moving a concept's schema
// between versions. Equal versions need no migration; a lower target
// version is incompatible and rejected.
func (c *Coordinator) PlanMigration(ctx context.Context, concept string, from, to int) (*MigrationPlanResult, error) {
	if from == to {
		return &MigrationPlanResult{NoMigrationNeeded: true}, nil
	}
	if to < from {
		return nil, &migration.IncompatibleError{Concept: concept, FromVersion: from, ToVersion: to}
	}

	m := &domain.Migration{
		ID:           domain.NewID(domain.MigrationIDPrefix),
		Concept:      concept,
		FromVersion:  from,
		ToVersion:    to,
		Phase:        domain.MigrationPlanned,
		Steps:        migration.Steps(from, to),
		RecordsTotal: migration.EstimateRecords(from, to),
		Errors:       []string{},
		StartedAt:    time.Now().UTC(),
	}
	if err := c.store.InsertMigration(ctx, m); err != nil {
		return nil, err
	}

	c.logger.Info("migration planned",
		"migration", m.ID, "concept", concept,
		"from", from, "to", to, "steps", len(m.Steps))
	return &MigrationPlanResult{Migration: m}, nil
}

// Expand applies the additive schema phase. Valid only from planned; any
// other phase leaves the migration untouched.
func (c *Coordinator) Expand(ctx context.Context, id string) (*domain.Migration, error) {
	return c.advance(ctx, id, "expand", domain.MigrationPlanned, domain.MigrationExpanded, nil)
}

// Migrate copies records into the expanded schema. Valid only from
// expanded; on success every estimated record counts as migrated.
func (c *Coordinator) Migrate(ctx context.Context, id string) (*domain.Migration, error) {
	return c.advance(ctx, id, "migrate", domain.MigrationExpanded, domain.MigrationMigrated,
		func(m *domain.Migration) {
			m.RecordsMigrated = m.RecordsTotal
		})
}

// ContractResult is the tagged outcome of the contract phase. When
// RollbackRequired is set the migration was not in the migrated phase;
// nothing was mutated and the caller should roll back.
type ContractResult struct {
	RollbackRequired bool                  `json:"rollback_required"`
	Phase            domain.MigrationPhase `json:"phase"`
	Migration        *domain.Migration     `json:"migration,omitempty"`
}

// Contract removes the old schema, completing the migration. From any
// phase other than migrated this returns a rollback signal instead of an
// error, leaving the record untouched.
func (c *Coordinator) Contract(ctx context.Context, id string) (*ContractResult, error) {
	var result *ContractResult
	err := retryConflict(func() error {
		m, version, err := c.store.GetMigration(ctx, id)
		if err != nil {
			return err
		}
		if m.Phase != domain.MigrationMigrated {
			result = &ContractResult{RollbackRequired: true, Phase: m.Phase}
			return nil
		}
		if err := m.Transition(domain.MigrationCompleted); err != nil {
			return err
		}
		if err := c.store.UpdateMigration(ctx, m, version); err != nil {
			return err
		}
		result = &ContractResult{Phase: m.Phase, Migration: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.RollbackRequired {
		c.metrics.MigrationSteps.WithLabelValues("contract").Inc()
		c.logger.Info("migration contracted", "migration", id)
	}
	return result, nil
}

// MigrationStatus is the read-only progress view of a migration.
type MigrationStatus struct {
	ID              string                `json:"id"`
	Concept         string                `json:"concept"`
	Phase           domain.MigrationPhase `json:"phase"`
	Progress        float64               `json:"progress"`
	RecordsMigrated int64                 `json:"records_migrated"`
	RecordsTotal    int64                 `json:"records_total"`
	Steps           []string              `json:"steps"`
}

// Status reports phase and record progress for a migration.
func (c *Coordinator) Status(ctx context.Context, id string) (*MigrationStatus, error) {
	m, _, err := c.store.GetMigration(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MigrationStatus{
		ID:              m.ID,
		Concept:         m.Concept,
		Phase:           m.Phase,
		Progress:        m.Progress(),
		RecordsMigrated: m.RecordsMigrated,
		RecordsTotal:    m.RecordsTotal,
		Steps:           m.Steps,
	}, nil
}

// advance moves a migration one phase forward under optimistic retry.
// A migration in any phase other than from yields a PhaseError naming
// the current phase, with no mutation.
func (c *Coordinator) advance(ctx context.Context, id, action string, from, to domain.MigrationPhase, apply func(*domain.Migration)) (*domain.Migration, error) {
	var result *domain.Migration
	err := retryConflict(func() error {
		m, version, err := c.store.GetMigration(ctx, id)
		if err != nil {
			return err
		}
		if m.Phase != from {
			return &domain.PhaseError{Entity: id, Action: action, Current: string(m.Phase)}
		}
		if err := m.Transition(to); err != nil {
			return err
		}
		if apply != nil {
			apply(m)
		}
		if err := c.store.UpdateMigration(ctx, m, version); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.MigrationSteps.WithLabelValues(action).Inc()
	c.logger.Info("migration advanced", "migration", id, "action", action, "phase", result.Phase)
	return result, nil
}
