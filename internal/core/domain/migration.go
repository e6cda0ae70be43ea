package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Migration Phase
// =============================================================================

type MigrationPhase string

const (
	MigrationPlanned    MigrationPhase = "planned"
	MigrationExpanded   MigrationPhase = "expanded"
	MigrationMigrated   MigrationPhase = "migrated"
	MigrationCompleted  MigrationPhase = "completed"
	MigrationRolledBack MigrationPhase = "rollback"
)

// migrationTransitions is strictly forward: each action advances exactly
// one phase, and nothing leaves completed.
var migrationTransitions = map[MigrationPhase][]MigrationPhase{
	MigrationPlanned:   {MigrationExpanded},
	MigrationExpanded:  {MigrationMigrated},
	MigrationMigrated:  {MigrationCompleted, MigrationRolledBack},
	MigrationCompleted: {}, // Terminal state
}

// =============================================================================
// Phase Errors
// =============================================================================

// PhaseError reports an action attempted from the wrong phase. The entity
// is left unchanged; the current phase is named so callers can remediate.
type PhaseError struct {
	Entity  string // entity id
	Action  string // attempted action
	Current string // current phase/status
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: cannot %s from phase %q", e.Entity, e.Action, e.Current)
}

// =============================================================================
// Migration
// =============================================================================

// Migration tracks one expand/migrate/contract schema change for a concept.
// The coordinator records phase transitions only; a schema-execution
// collaborator physically performs each step.
type Migration struct {
	ID              string         `json:"id"`
	Concept         string         `json:"concept"`
	FromVersion     int            `json:"from_version"`
	ToVersion       int            `json:"to_version"`
	Phase           MigrationPhase `json:"phase"`
	Steps           []string       `json:"steps"`
	RecordsMigrated int64          `json:"records_migrated"`
	RecordsTotal    int64          `json:"records_total"`
	Errors          []string       `json:"errors"`
	StartedAt       time.Time      `json:"started_at"`
}

// Transition attempts to advance the migration one phase.
func (m *Migration) Transition(to MigrationPhase) error {
	allowed, exists := migrationTransitions[m.Phase]
	if !exists {
		return ErrInvalidTransition
	}
	for _, p := range allowed {
		if p == to {
			m.Phase = to
			return nil
		}
	}
	return ErrInvalidTransition
}

// Progress reports migrated records as a fraction of the total.
func (m *Migration) Progress() float64 {
	if m.RecordsTotal == 0 {
		return 0
	}
	return float64(m.RecordsMigrated) / float64(m.RecordsTotal)
}
