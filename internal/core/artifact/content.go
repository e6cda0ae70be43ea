// Package artifact provides pure functions for content-addressed build
// artifacts: deterministic hashing, input manifests, size estimation, and
// garbage-collection candidate selection. No I/O, no side effects.
package artifact

import (
	"encoding/binary"
	"fmt"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/zeebo/blake3"
)

// =============================================================================
// Content Addressing
// =============================================================================

// ContentHash computes the deterministic content hash over the ordered
// input tuple (concept, spec, implementation, deps). Each input is
// length-prefixed before hashing so the encoding is unambiguous:
// ("ab","c") and ("a","bc") hash differently.
func ContentHash(concept, spec, implementation string, deps []string) string {
	hasher := blake3.New()
	writeField(hasher, concept)
	writeField(hasher, spec)
	writeField(hasher, implementation)
	for _, d := range deps {
		writeField(hasher, d)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

func writeField(h *blake3.Hasher, s string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(s)))
	h.Write(length[:])
	h.Write([]byte(s))
}

// HashInput hashes a single build input for the sub-hash manifest.
func HashInput(s string) string {
	sum := blake3.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// =============================================================================
// Input Manifest
// =============================================================================

// InputManifest records a per-input sub-hash: the spec, the
// implementation, and one entry per dependency.
func InputManifest(spec, implementation string, deps []string) []domain.InputHash {
	inputs := make([]domain.InputHash, 0, 2+len(deps))
	inputs = append(inputs,
		domain.InputHash{Name: "spec", Hash: HashInput(spec)},
		domain.InputHash{Name: "implementation", Hash: HashInput(implementation)},
	)
	for _, d := range deps {
		inputs = append(inputs, domain.InputHash{Name: d, Hash: HashInput(d)})
	}
	return inputs
}

// =============================================================================
// Size and Location
// =============================================================================

// EstimateSize synthesizes an artifact size from payload lengths.
func EstimateSize(spec, implementation string, deps []string) int64 {
	size := int64(len(spec) + len(implementation))
	for _, d := range deps {
		size += int64(len(d))
	}
	return size
}

// Location returns the deterministic storage location for an artifact,
// keyed by owning concept and content hash.
func Location(concept, hash string) string {
	return fmt.Sprintf("artifacts/%s/%s", concept, hash)
}
