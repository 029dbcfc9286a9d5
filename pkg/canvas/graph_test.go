package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIncomingIndex(t *testing.T) {
	edges := []Edge{
		{ID: "e1", FromNode: "a", ToNode: "c"},
		{ID: "e2", FromNode: "b", ToNode: "c"},
		{ID: "e3", FromNode: "c", ToNode: "d"},
		{ID: "e4", FromNode: "x"},
	}

	idx := BuildIncomingIndex(edges)

	require.Len(t, idx["c"], 2)
	assert.Equal(t, "e1", idx["c"][0].ID)
	assert.Equal(t, "e2", idx["c"][1].ID)
	assert.Len(t, idx["d"], 1)
	assert.Empty(t, idx["a"])
	_, hasEmpty := idx[""]
	assert.False(t, hasEmpty)
}

func TestGraphLookup(t *testing.T) {
	g := New([]Node{
		{ID: "a", Type: NodeText},
		{ID: "b", Type: NodeGroup},
		{ID: "a", Type: NodeFile},
	}, nil)

	n, ok := g.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, NodeText, n.Type, "first node with a repeated id wins")

	_, ok = g.Lookup("missing")
	assert.False(t, ok)
}

func TestGraphAppend(t *testing.T) {
	g := New([]Node{{ID: "a"}}, []Edge{{ID: "e1", FromNode: "a", ToNode: "a"}})

	assert.False(t, g.AppendNode(Node{ID: "a"}), "existing node id")
	assert.False(t, g.AppendNode(Node{ID: "e1"}), "existing edge id")
	assert.False(t, g.AppendNode(Node{}), "empty id")
	assert.True(t, g.AppendNode(Node{ID: "b"}))

	assert.False(t, g.AppendEdge(Edge{ID: "b"}))
	assert.True(t, g.AppendEdge(Edge{ID: "e2", FromNode: "a", ToNode: "b"}))

	assert.Len(t, g.Nodes(), 2)
	assert.Len(t, g.Edges(), 2)
	n, ok := g.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, "b", n.ID)
}

func TestNewID(t *testing.T) {
	g := New(nil, nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := g.NewID()
		assert.Len(t, id, 16)
		assert.False(t, seen[id])
		seen[id] = true
		g.AppendNode(Node{ID: id})
	}
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"identical", a, true},
		{"inside", Rect{X: 10, Y: 10, Width: 10, Height: 10}, true},
		{"partial", Rect{X: 50, Y: 50, Width: 100, Height: 100}, true},
		{"touching right edge", Rect{X: 100, Y: 0, Width: 50, Height: 50}, false},
		{"touching bottom edge", Rect{X: 0, Y: 100, Width: 50, Height: 50}, false},
		{"far away", Rect{X: 500, Y: 500, Width: 10, Height: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(a))
		})
	}
}
