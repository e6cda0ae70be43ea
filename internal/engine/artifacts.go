package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/artpar/shipyard/internal/core/artifact"
	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Artifact Store
// =============================================================================

// Artifacts is the content-addressed artifact service. Identity is the
// blake3 hash of the build inputs; an identical build request returns the
// stored artifact without writing anything.
type Artifacts struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
}

func NewArtifacts(store *Store, metrics *Metrics, logger *slog.Logger) *Artifacts {
	return &Artifacts{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "artifacts"),
	}
}

// Build stores a content-addressed artifact for the given inputs. The
// returned bool is true when a new artifact was created, false when the
// request deduplicated against an existing one. The hash is computed
// before any write, so a cancelled build leaves no partial state.
func (a *Artifacts) Build(ctx context.Context, concept, spec, implementation string, deps []string) (*domain.Artifact, bool, error) {
	hash := artifact.ContentHash(concept, spec, implementation, deps)

	existing, err := a.store.GetArtifact(ctx, hash)
	if err == nil {
		a.metrics.ArtifactDedupHits.Inc()
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	art := &domain.Artifact{
		Hash:      hash,
		Concept:   concept,
		Location:  artifact.Location(concept, hash),
		SizeBytes: artifact.EstimateSize(spec, implementation, deps),
		Inputs:    artifact.InputManifest(spec, implementation, deps),
		BuiltAt:   time.Now().UTC(),
	}

	if err := a.store.InsertArtifact(ctx, art); err != nil {
		// A concurrent build of the same content may have won the insert;
		// its record is byte-for-byte what we would have stored.
		if winner, getErr := a.store.GetArtifact(ctx, hash); getErr == nil {
			a.metrics.ArtifactDedupHits.Inc()
			return winner, false, nil
		}
		return nil, false, err
	}

	a.metrics.ArtifactBuilds.Inc()
	a.logger.Info("artifact built", "concept", concept, "hash", hash, "size_bytes", art.SizeBytes)
	return art, true, nil
}

// Resolve returns the storage location for a content hash.
func (a *Artifacts) Resolve(ctx context.Context, hash string) (string, error) {
	art, err := a.store.GetArtifact(ctx, hash)
	if err != nil {
		return "", err
	}
	return art.Location, nil
}

// Get returns the full artifact record for a content hash.
func (a *Artifacts) Get(ctx context.Context, hash string) (*domain.Artifact, error) {
	return a.store.GetArtifact(ctx, hash)
}

// GC removes artifacts older than the cutoff, always keeping the
// keepVersions most recent artifacts of each concept regardless of age.
func (a *Artifacts) GC(ctx context.Context, olderThan time.Time, keepVersions int) (artifact.GCResult, error) {
	all, err := a.store.ListArtifacts(ctx)
	if err != nil {
		return artifact.GCResult{}, err
	}

	result := artifact.SelectVictims(all, olderThan, keepVersions)
	if len(result.Victims) == 0 {
		return result, nil
	}

	hashes := make([]string, len(result.Victims))
	for i, v := range result.Victims {
		hashes[i] = v.Hash
	}
	if err := a.store.DeleteArtifacts(ctx, hashes); err != nil {
		return artifact.GCResult{}, err
	}

	a.metrics.GCRemoved.Add(float64(len(hashes)))
	a.logger.Info("artifacts collected", "removed", len(hashes), "freed_bytes", result.FreedBytes)
	return result, nil
}
