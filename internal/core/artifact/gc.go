package artifact

import (
	"sort"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Garbage Collection
// =============================================================================

// GCResult summarizes what a collection pass would remove.
type GCResult struct {
	Victims    []domain.Artifact
	FreedBytes int64
}

// SelectVictims picks the artifacts eligible for garbage collection.
// Artifacts are grouped by owning concept and sorted by build time
// descending; entries beyond the first keepVersions whose build time is
// older than olderThan become victims. The keepVersions most recent
// artifacts per concept are never collected regardless of age.
func SelectVictims(artifacts []domain.Artifact, olderThan time.Time, keepVersions int) GCResult {
	byConcept := make(map[string][]domain.Artifact)
	for _, a := range artifacts {
		byConcept[a.Concept] = append(byConcept[a.Concept], a)
	}

	var result GCResult
	for _, group := range byConcept {
		sort.Slice(group, func(i, j int) bool {
			return group[i].BuiltAt.After(group[j].BuiltAt)
		})
		for i, a := range group {
			if i < keepVersions {
				continue
			}
			if a.BuiltAt.Before(olderThan) {
				result.Victims = append(result.Victims, a)
				result.FreedBytes += a.SizeBytes
			}
		}
	}
	return result
}
