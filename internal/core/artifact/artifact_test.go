package artifact

import (
	"testing"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash("Users", "spec-v1", "impl-v1", []string{"libA", "libB"})
	b := ContentHash("Users", "spec-v1", "impl-v1", []string{"libA", "libB"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // 256-bit hash, hex encoded
}

func TestContentHash_SensitiveToEveryInput(t *testing.T) {
	base := ContentHash("Users", "spec", "impl", []string{"dep"})

	assert.NotEqual(t, base, ContentHash("Orders", "spec", "impl", []string{"dep"}))
	assert.NotEqual(t, base, ContentHash("Users", "spec2", "impl", []string{"dep"}))
	assert.NotEqual(t, base, ContentHash("Users", "spec", "impl2", []string{"dep"}))
	assert.NotEqual(t, base, ContentHash("Users", "spec", "impl", []string{"dep2"}))
	assert.NotEqual(t, base, ContentHash("Users", "spec", "impl", nil))
}

func TestContentHash_DepOrderMatters(t *testing.T) {
	a := ContentHash("Users", "s", "i", []string{"x", "y"})
	b := ContentHash("Users", "s", "i", []string{"y", "x"})

	assert.NotEqual(t, a, b)
}

func TestContentHash_LengthPrefixedEncoding(t *testing.T) {
	// Without length prefixes ("ab","c") and ("a","bc") would collide.
	a := ContentHash("k", "ab", "c", nil)
	b := ContentHash("k", "a", "bc", nil)

	assert.NotEqual(t, a, b)
}

func TestInputManifest(t *testing.T) {
	inputs := InputManifest("spec", "impl", []string{"libA", "libB"})

	require.Len(t, inputs, 4)
	assert.Equal(t, "spec", inputs[0].Name)
	assert.Equal(t, "implementation", inputs[1].Name)
	assert.Equal(t, "libA", inputs[2].Name)
	assert.Equal(t, "libB", inputs[3].Name)
	for _, in := range inputs {
		assert.Len(t, in.Hash, 64)
	}
	assert.Equal(t, inputs[2].Hash, HashInput("libA"))
}

func TestEstimateSize(t *testing.T) {
	assert.Equal(t, int64(10), EstimateSize("abc", "defg", []string{"hij"}))
	assert.Zero(t, EstimateSize("", "", nil))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "artifacts/Users/abc123", Location("Users", "abc123"))
}

func artifactAt(concept, hash string, builtAt time.Time, size int64) domain.Artifact {
	return domain.Artifact{
		Hash:      hash,
		Concept:   concept,
		Location:  Location(concept, hash),
		SizeBytes: size,
		BuiltAt:   builtAt,
	}
}

func TestSelectVictims_KeepsRecentVersionsRegardlessOfAge(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-90 * 24 * time.Hour)

	arts := []domain.Artifact{
		artifactAt("Users", "u3", old.Add(2*time.Hour), 30),
		artifactAt("Users", "u2", old.Add(time.Hour), 20),
		artifactAt("Users", "u1", old, 10),
	}

	// All three predate the cutoff, but the two newest are protected.
	result := SelectVictims(arts, now.Add(-time.Hour), 2)

	require.Len(t, result.Victims, 1)
	assert.Equal(t, "u1", result.Victims[0].Hash)
	assert.Equal(t, int64(10), result.FreedBytes)
}

func TestSelectVictims_AgeCutoff(t *testing.T) {
	now := time.Now().UTC()

	arts := []domain.Artifact{
		artifactAt("Users", "fresh", now.Add(-time.Hour), 5),
		artifactAt("Users", "stale", now.Add(-48*time.Hour), 7),
	}

	result := SelectVictims(arts, now.Add(-24*time.Hour), 1)

	require.Len(t, result.Victims, 1)
	assert.Equal(t, "stale", result.Victims[0].Hash)
	assert.Equal(t, int64(7), result.FreedBytes)
}

func TestSelectVictims_GroupsByConcept(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)

	arts := []domain.Artifact{
		artifactAt("Users", "u-new", now, 1),
		artifactAt("Users", "u-old", old, 2),
		artifactAt("Orders", "o-new", now, 4),
		artifactAt("Orders", "o-old", old, 8),
	}

	result := SelectVictims(arts, now.Add(-time.Hour), 1)

	require.Len(t, result.Victims, 2)
	assert.Equal(t, int64(10), result.FreedBytes)
	victims := map[string]bool{}
	for _, v := range result.Victims {
		victims[v.Hash] = true
	}
	assert.True(t, victims["u-old"])
	assert.True(t, victims["o-old"])
}

func TestSelectVictims_NothingEligible(t *testing.T) {
	now := time.Now().UTC()
	arts := []domain.Artifact{artifactAt("Users", "u1", now, 5)}

	result := SelectVictims(arts, now.Add(-time.Hour), 0)

	assert.Empty(t, result.Victims)
	assert.Zero(t, result.FreedBytes)
}
