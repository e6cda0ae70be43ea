package manifest

import (
	"testing"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
kitName: shop
kitVersion: "2.1.0"
strategy: canary
nodes:
  - id: db-migrate
    kind: migration
    target: Users
    fromVersion: 1
    toVersion: 2
  - id: api
    kind: service
    target: api-svc
  - id: mailer
    kind: function
    target: mail-fn
edges:
  - from: db-migrate
    to: api
  - from: api
    to: mailer
`

func TestParse_ValidManifest(t *testing.T) {
	m, err := Parse(validManifest)
	require.NoError(t, err)

	assert.Equal(t, "shop", m.KitName)
	assert.Equal(t, "2.1.0", m.KitVersion)
	assert.Equal(t, "canary", m.Strategy)
	require.Len(t, m.Nodes, 3)
	require.Len(t, m.Edges, 2)
}

func TestParse_DomainConversion(t *testing.T) {
	m, err := Parse(validManifest)
	require.NoError(t, err)

	nodes := m.DomainNodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, domain.NodeMigration, nodes[0].Kind)
	assert.Equal(t, domain.NodePending, nodes[0].Status)
	assert.Equal(t, 2, nodes[0].ToVersion)
	assert.Equal(t, domain.NodeService, nodes[1].Kind)

	edges := m.DomainEdges()
	assert.Equal(t, domain.Edge{From: "db-migrate", To: "api"}, edges[0])
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("  \n ")
	assert.ErrorIs(t, err, ErrEmptyManifest)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse("nodes: [whoops")

	var invalid *InvalidManifestError
	require.ErrorAs(t, err, &invalid)
}

func TestParse_NoNodes(t *testing.T) {
	_, err := Parse("kitName: empty\n")

	var invalid *InvalidManifestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Problems[0], "at least one node")
}

func TestParse_CollectsAllProblems(t *testing.T) {
	raw := `
nodes:
  - id: a
    kind: service
    target: a-svc
  - id: a
    kind: teapot
    target: a2-svc
  - id: b
    kind: service
edges:
  - from: a
    to: ghost
  - from: b
    to: b
`
	_, err := Parse(raw)

	var invalid *InvalidManifestError
	require.ErrorAs(t, err, &invalid)

	joined := invalid.Error()
	assert.Contains(t, joined, "duplicate id")
	assert.Contains(t, joined, `unknown kind "teapot"`)
	assert.Contains(t, joined, "target is required")
	assert.Contains(t, joined, `unknown node "ghost"`)
	assert.Contains(t, joined, "self-dependency")
}

func TestParse_MigrationVersionOrder(t *testing.T) {
	raw := `
nodes:
  - id: m
    kind: migration
    target: Users
    fromVersion: 3
    toVersion: 1
`
	_, err := Parse(raw)

	var invalid *InvalidManifestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Error(), "toVersion 1 below fromVersion 3")
}

func TestParse_UnknownStrategy(t *testing.T) {
	raw := `
strategy: exponential
nodes:
  - id: a
    kind: service
    target: a-svc
`
	_, err := Parse(raw)

	var invalid *InvalidManifestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Error(), `unknown strategy "exponential"`)
}
