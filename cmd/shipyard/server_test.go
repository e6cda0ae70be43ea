package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Exit Code Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	dbErr := &ServerError{Op: "NewServer", Err: errors.New("locked"), ExitCode: ExitDatabaseError}
	assert.Equal(t, ExitDatabaseError, exitCodeFor(dbErr))

	httpErr := &ServerError{Op: "Start", Err: errors.New("bind"), ExitCode: ExitHTTPServerError}
	assert.Equal(t, ExitHTTPServerError, exitCodeFor(httpErr))

	// Wrapped ServerErrors still surface their code.
	assert.Equal(t, ExitDatabaseError, exitCodeFor(fmt.Errorf("boot: %w", dbErr)))

	// Plain errors fall back to a config failure.
	assert.Equal(t, ExitConfigError, exitCodeFor(errors.New("unknown")))
}

func TestServerError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &ServerError{Op: "Shutdown", Err: inner, ExitCode: ExitDatabaseError}

	assert.Equal(t, "Shutdown: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}

// =============================================================================
// CLI Tests
// =============================================================================

func TestRun_VersionFlag(t *testing.T) {
	assert.Equal(t, ExitSuccess, run([]string{"-version"}))
}

func TestRun_BadConfigPath(t *testing.T) {
	assert.Equal(t, ExitConfigError, run([]string{"-config", "/nonexistent/shipyard.yaml"}))
}
