// Package upstream walks a canvas graph from a root node towards its
// predecessors along the vertical stacking convention: a parent sits above
// its child and connects from its bottom side to the child's top side.
package upstream

import "canvas-rag-be/pkg/canvas"

// Hop limits accepted from callers.
const (
	MaxInteractiveHops = 12
	MaxExportHops      = 10
)

// Result is the ordered upstream chain, nearest first.
type Result struct {
	Nodes []canvas.Node
	// Hops maps each node id in Nodes to its distance from the root.
	Hops map[string]int
}

// ClampHops bounds a caller-supplied hop limit to [0, max].
func ClampHops(hops, max int) int {
	if hops < 0 {
		return 0
	}
	if hops > max {
		return max
	}
	return hops
}

// Walk follows a single chain of predecessors from rootID for at most
// maxHops steps. At each node it considers incoming edges that land on the
// top side, prefers the one leaving its source from the bottom side, and
// otherwise takes the first in document order.
//
// The walk ends quietly on the first inconsistency: no candidate edge, a
// self-loop, a node already visited, or an edge whose source is not in
// the graph. The root itself is never part of the result.
func Walk(g *canvas.Graph, rootID string, maxHops int) Result {
	res := Result{Nodes: []canvas.Node{}, Hops: map[string]int{}}
	if g == nil || maxHops <= 0 {
		return res
	}
	if _, ok := g.Lookup(rootID); !ok {
		return res
	}

	incoming := canvas.BuildIncomingIndex(g.Edges())
	visited := map[string]bool{rootID: true}
	current := rootID

	for hop := 1; hop <= maxHops; hop++ {
		edge, ok := pickParentEdge(incoming[current])
		if !ok {
			break
		}
		next := edge.FromNode
		if next == current || visited[next] {
			break
		}
		node, ok := g.Lookup(next)
		if !ok {
			break
		}
		visited[next] = true
		res.Nodes = append(res.Nodes, node)
		res.Hops[next] = hop
		current = next
	}
	return res
}

func pickParentEdge(edges []canvas.Edge) (canvas.Edge, bool) {
	var first canvas.Edge
	found := false
	for _, e := range edges {
		if e.ToSide != canvas.SideTop {
			continue
		}
		if e.FromSide == canvas.SideBottom {
			return e, true
		}
		if !found {
			first, found = e, true
		}
	}
	return first, found
}
