package domain

import "time"

// =============================================================================
// Artifact
// =============================================================================

// InputHash records the sub-hash of one build input.
type InputHash struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Artifact is an immutable, content-addressed build output. Identity is
// the content hash: a build request matching an existing hash returns the
// stored artifact unchanged.
type Artifact struct {
	Hash      string      `json:"hash"`
	Concept   string      `json:"concept"`
	Location  string      `json:"location"`
	SizeBytes int64       `json:"size_bytes"`
	Inputs    []InputHash `json:"inputs"`
	BuiltAt   time.Time   `json:"built_at"`
}
