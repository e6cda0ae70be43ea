// Package migration provides pure functions for expand/migrate/contract
// schema migration planning. No I/O, no side effects.
package migration

import (
	"errors"
	"fmt"
)

// =============================================================================
// Planning Errors
// =============================================================================

// ErrIncompatible is returned when the target version is below the
// current version: backward migration is never planned.
var ErrIncompatible = errors.New("cannot migrate backwards")

// IncompatibleError carries the offending version pair.
type IncompatibleError struct {
	Concept     string
	FromVersion int
	ToVersion   int
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%s: cannot migrate backwards from v%d to v%d", e.Concept, e.FromVersion, e.ToVersion)
}

func (e *IncompatibleError) Unwrap() error { return ErrIncompatible }

// =============================================================================
// Step Generation
// =============================================================================

// recordsPerIncrement is the estimated record count per version step.
const recordsPerIncrement = 1000

// Steps generates the ordered expand/migrate/contract step list for every
// version increment between from and to. Assumes to > from.
func Steps(from, to int) []string {
	steps := make([]string, 0, 3*(to-from))
	for v := from; v < to; v++ {
		steps = append(steps,
			fmt.Sprintf("expand-v%d-to-v%d", v, v+1),
			fmt.Sprintf("migrate-v%d-to-v%d", v, v+1),
			fmt.Sprintf("contract-v%d-to-v%d", v, v+1),
		)
	}
	return steps
}

// EstimateRecords estimates the number of records the migration touches.
func EstimateRecords(from, to int) int64 {
	return recordsPerIncrement * int64(to-from)
}
