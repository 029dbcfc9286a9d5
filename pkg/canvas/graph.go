// Package canvas models a node-and-edge canvas document: its nodes,
// edges, payload normalization and JSON wire format.
package canvas

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Graph is the in-memory canvas. It is built once per operation from the
// canvas document and discarded after the resulting mutation is written.
type Graph struct {
	nodes []Node
	edges []Edge
	byID  map[string]int

	// extra holds top-level document keys other than nodes and edges.
	extra map[string]json.RawMessage
}

// New builds a graph over nodes and edges. When ids repeat, the first
// node with a given id wins for lookups.
func New(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes: make([]Node, 0, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
		byID:  make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		g.appendNode(n)
	}
	g.edges = append(g.edges, edges...)
	return g
}

// Nodes returns the nodes in document order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edges in document order.
func (g *Graph) Edges() []Edge { return g.edges }

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id string) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// ContainsID reports whether any node or edge already uses id.
func (g *Graph) ContainsID(id string) bool {
	if _, ok := g.byID[id]; ok {
		return true
	}
	for _, e := range g.edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

// AppendNode adds n at the end of the node list. It returns false without
// modifying the graph when the id is empty or already taken.
func (g *Graph) AppendNode(n Node) bool {
	if n.ID == "" || g.ContainsID(n.ID) {
		return false
	}
	g.appendNode(n)
	return true
}

// AppendEdge adds e at the end of the edge list. It returns false without
// modifying the graph when the id is empty or already taken.
func (g *Graph) AppendEdge(e Edge) bool {
	if e.ID == "" || g.ContainsID(e.ID) {
		return false
	}
	g.edges = append(g.edges, e)
	return true
}

func (g *Graph) appendNode(n Node) {
	if _, dup := g.byID[n.ID]; !dup {
		g.byID[n.ID] = len(g.nodes)
	}
	g.nodes = append(g.nodes, n)
}

// NewID returns an id that is not used by any node or edge in g.
func (g *Graph) NewID() string {
	for {
		id := NewNodeID()
		if !g.ContainsID(id) {
			return id
		}
	}
}

// BuildIncomingIndex maps each node id to the edges terminating there,
// preserving edge order.
func BuildIncomingIndex(edges []Edge) map[string][]Edge {
	idx := make(map[string][]Edge, len(edges))
	for _, e := range edges {
		if e.ToNode == "" {
			continue
		}
		idx[e.ToNode] = append(idx[e.ToNode], e)
	}
	return idx
}

// NewNodeID returns a 16 character hex id, the shape canvas editors use.
func NewNodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
