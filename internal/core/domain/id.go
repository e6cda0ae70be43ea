package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// ID Generation
// =============================================================================

// NewID generates an entity id with the given prefix, e.g. "plan_a1b2c3d4".
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String()[:8])
}

const (
	PlanIDPrefix      = "plan"
	MigrationIDPrefix = "mig"
	RolloutIDPrefix   = "ro"
	CheckIDPrefix     = "chk"
)
