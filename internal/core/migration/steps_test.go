package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteps_SingleIncrement(t *testing.T) {
	steps := Steps(1, 2)

	assert.Equal(t, []string{
		"expand-v1-to-v2",
		"migrate-v1-to-v2",
		"contract-v1-to-v2",
	}, steps)
}

func TestSteps_MultipleIncrements(t *testing.T) {
	steps := Steps(1, 3)

	require.Len(t, steps, 6)
	assert.Equal(t, "expand-v1-to-v2", steps[0])
	assert.Equal(t, "contract-v1-to-v2", steps[2])
	assert.Equal(t, "expand-v2-to-v3", steps[3])
	assert.Equal(t, "contract-v2-to-v3", steps[5])
}

func TestEstimateRecords(t *testing.T) {
	assert.Equal(t, int64(1000), EstimateRecords(1, 2))
	assert.Equal(t, int64(3000), EstimateRecords(2, 5))
}

func TestIncompatibleError(t *testing.T) {
	err := &IncompatibleError{Concept: "Users", FromVersion: 3, ToVersion: 1}

	assert.ErrorIs(t, err, ErrIncompatible)
	assert.Contains(t, err.Error(), "Users")
	assert.Contains(t, err.Error(), "v3")
	assert.Contains(t, err.Error(), "v1")
}
