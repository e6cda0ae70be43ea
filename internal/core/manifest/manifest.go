// Package manifest parses and validates deployment manifests.
// This is a pure package - no I/O, no side effects.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/shipyard/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Manifest Errors
// =============================================================================

var (
	ErrEmptyManifest = errors.New("manifest cannot be empty")
	ErrNoNodes       = errors.New("manifest must declare at least one node")
)

// InvalidManifestError carries every validation failure found in a
// manifest so callers can report them all at once.
type InvalidManifestError struct {
	Problems []string
}

func (e *InvalidManifestError) Error() string {
	return "invalid manifest: " + strings.Join(e.Problems, "; ")
}

// =============================================================================
// Manifest Types
// =============================================================================

// NodeSpec is a deployable unit declaration.
type NodeSpec struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Target      string `yaml:"target"`
	FromVersion int    `yaml:"fromVersion,omitempty"`
	ToVersion   int    `yaml:"toVersion,omitempty"`
}

// EdgeSpec declares a dependency: From must deploy before To.
type EdgeSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Manifest is the inbound deployment document.
type Manifest struct {
	KitName    string     `yaml:"kitName,omitempty"`
	KitVersion string     `yaml:"kitVersion,omitempty"`
	Strategy   string     `yaml:"strategy,omitempty"`
	Nodes      []NodeSpec `yaml:"nodes"`
	Edges      []EdgeSpec `yaml:"edges,omitempty"`
}

// =============================================================================
// Parsing
// =============================================================================

// knownKinds are the node kinds the planner understands.
var knownKinds = map[string]domain.NodeKind{
	"service":   domain.NodeService,
	"function":  domain.NodeFunction,
	"migration": domain.NodeMigration,
}

// Parse parses raw YAML into a Manifest and validates its structure.
// Returns *InvalidManifestError when the node list is absent or malformed.
func Parse(raw string) (*Manifest, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyManifest
	}

	var m Manifest
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		return nil, &InvalidManifestError{Problems: []string{fmt.Sprintf("parse yaml: %v", err)}}
	}

	if problems := validate(&m); len(problems) > 0 {
		return nil, &InvalidManifestError{Problems: problems}
	}

	return &m, nil
}

func validate(m *Manifest) []string {
	var problems []string

	if len(m.Nodes) == 0 {
		problems = append(problems, ErrNoNodes.Error())
		return problems
	}

	if m.Strategy != "" {
		if _, err := domain.ParseStrategy(m.Strategy); err != nil {
			problems = append(problems, fmt.Sprintf("unknown strategy %q", m.Strategy))
		}
	}

	ids := make(map[string]bool, len(m.Nodes))
	for i, n := range m.Nodes {
		if n.ID == "" {
			problems = append(problems, fmt.Sprintf("node %d: id is required", i))
			continue
		}
		if ids[n.ID] {
			problems = append(problems, fmt.Sprintf("node %q: duplicate id", n.ID))
		}
		ids[n.ID] = true

		if _, ok := knownKinds[n.Kind]; !ok {
			problems = append(problems, fmt.Sprintf("node %q: unknown kind %q", n.ID, n.Kind))
		}
		if n.Target == "" {
			problems = append(problems, fmt.Sprintf("node %q: target is required", n.ID))
		}
		if n.Kind == "migration" && n.ToVersion < n.FromVersion {
			problems = append(problems, fmt.Sprintf("node %q: toVersion %d below fromVersion %d", n.ID, n.ToVersion, n.FromVersion))
		}
	}

	for i, e := range m.Edges {
		if e.From == "" || e.To == "" {
			problems = append(problems, fmt.Sprintf("edge %d: from and to are required", i))
			continue
		}
		if !ids[e.From] {
			problems = append(problems, fmt.Sprintf("edge %d: unknown node %q", i, e.From))
		}
		if !ids[e.To] {
			problems = append(problems, fmt.Sprintf("edge %d: unknown node %q", i, e.To))
		}
		if e.From == e.To {
			problems = append(problems, fmt.Sprintf("edge %d: self-dependency on %q", i, e.From))
		}
	}

	return problems
}

// =============================================================================
// Conversion
// =============================================================================

// DomainNodes converts the manifest's node specs into domain nodes at
// pending status.
func (m *Manifest) DomainNodes() []domain.Node {
	nodes := make([]domain.Node, len(m.Nodes))
	for i, n := range m.Nodes {
		nodes[i] = domain.Node{
			ID:          n.ID,
			Kind:        knownKinds[n.Kind],
			Target:      n.Target,
			Status:      domain.NodePending,
			FromVersion: n.FromVersion,
			ToVersion:   n.ToVersion,
		}
	}
	return nodes
}

// DomainEdges converts the manifest's edge specs into domain edges.
func (m *Manifest) DomainEdges() []domain.Edge {
	edges := make([]domain.Edge, len(m.Edges))
	for i, e := range m.Edges {
		edges[i] = domain.Edge{From: e.From, To: e.To}
	}
	return edges
}
