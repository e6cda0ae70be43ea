// Package graph provides pure dependency-graph algorithms for deployment
// planning: cycle detection, topological ordering, and cost estimation.
// No I/O, no side effects.
package graph

import (
	"fmt"
	"strings"

	"github.com/artpar/shipyard/internal/core/domain"
)

// =============================================================================
// Cycle Error
// =============================================================================

// CycleError reports a circular dependency. Path is the ordered cycle,
// starting and ending at the first repeated node, e.g. [a b c a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

// =============================================================================
// Duration Estimation
// =============================================================================

// SecondsPerNode is the placeholder per-node deployment cost. Real
// deployments should substitute measured historical costs.
const SecondsPerNode = 60

// EstimateDuration estimates plan execution time in seconds.
func EstimateDuration(nodeCount int) int {
	return SecondsPerNode * nodeCount
}

// =============================================================================
// Adjacency
// =============================================================================

// BuildAdjacency builds the dependency adjacency map: for each node id,
// the ids that depend on it, in edge declaration order.
func BuildAdjacency(nodes []domain.Node, edges []domain.Edge) map[string][]string {
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		adj[n.ID] = nil
	}
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// =============================================================================
// Cycle Detection
// =============================================================================

// dfs node colors.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // fully explored
)

// frame is one entry on the explicit DFS stack.
type frame struct {
	id   string
	next int // index of the next neighbor to visit
}

// DetectCycle runs an iterative depth-first search over the graph and
// returns a *CycleError describing the first cycle found, or nil when the
// edge set induces a DAG. Nodes are explored in declaration order so the
// reported cycle is deterministic for a given manifest.
func DetectCycle(nodes []domain.Node, edges []domain.Edge) *CycleError {
	adj := BuildAdjacency(nodes, edges)
	color := make(map[string]int, len(nodes))

	for _, start := range nodes {
		if color[start.ID] != white {
			continue
		}

		stack := []frame{{id: start.ID}}
		color[start.ID] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := adj[top.id]

			if top.next >= len(neighbors) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}

			next := neighbors[top.next]
			top.next++

			switch color[next] {
			case gray:
				// Back edge: the cycle is the path segment from the
				// repeated node to the top of the stack, closed again
				// at the repeated node.
				var path []string
				seen := false
				for _, f := range stack {
					if f.id == next {
						seen = true
					}
					if seen {
						path = append(path, f.id)
					}
				}
				path = append(path, next)
				return &CycleError{Path: path}
			case white:
				color[next] = gray
				stack = append(stack, frame{id: next})
			}
		}
	}

	return nil
}

// =============================================================================
// Topological Ordering
// =============================================================================

// TopologicalSort orders node ids so every dependency precedes its
// dependents, using Kahn's algorithm:
//  1. Compute each node's in-degree from the edge set
//  2. Start with nodes that have no incoming edges
//  3. Process each node, reducing the in-degree of its dependents
//  4. When a dependent's in-degree reaches 0, add it to the queue
//
// Returns an error if a cycle prevents a complete ordering; callers are
// expected to run DetectCycle first for a diagnostic path.
func TopologicalSort(nodes []domain.Node, edges []domain.Edge) ([]string, error) {
	adj := BuildAdjacency(nodes, edges)
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		inDegree[e.To]++
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	result := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, dep := range adj[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) < len(nodes) {
		return nil, fmt.Errorf("graph contains a cycle: ordered %d of %d nodes", len(result), len(nodes))
	}

	return result, nil
}
