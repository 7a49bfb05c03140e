package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNode(t *testing.T) {
	g := BlankGraph()

	first := g.AddNode("")
	second := g.AddNode("Review")

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, DefaultNodeName, first.Data.Name)
	assert.Equal(t, "Review", second.Data.Name)
	assert.False(t, first.Data.IsStart)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Position, second.Position)
	assert.Equal(t, Position{X: 150, Y: 250}, first.Position)
	assert.Equal(t, NodeType, first.Type)
}

func TestGraph_RenameNode(t *testing.T) {
	t.Run("rewrites edges", func(t *testing.T) {
		g := sampleGraph()
		require.NoError(t, g.RenameNode("a", "  z  "))

		assert.Equal(t, "z", g.Nodes[0].ID)
		assert.Equal(t, "z", g.Edges[0].Source)
		assert.Equal(t, "z", g.Edges[2].Target)
		assert.Equal(t, "b", g.Edges[0].Target)
	})

	t.Run("duplicate is a no-op", func(t *testing.T) {
		g := sampleGraph()
		before := g.Clone()

		err := g.RenameNode("a", "b")
		assert.ErrorIs(t, err, ErrDuplicateNodeID)
		assert.Equal(t, before, g)
	})

	t.Run("empty is a no-op", func(t *testing.T) {
		g := sampleGraph()
		before := g.Clone()

		assert.ErrorIs(t, g.RenameNode("a", "   "), ErrEmptyNodeID)
		assert.Equal(t, before, g)
	})

	t.Run("same id", func(t *testing.T) {
		g := sampleGraph()
		before := g.Clone()

		assert.NoError(t, g.RenameNode("a", "a"))
		assert.Equal(t, before, g)
	})

	t.Run("unknown node", func(t *testing.T) {
		g := sampleGraph()
		assert.ErrorIs(t, g.RenameNode("nope", "x"), ErrNodeNotFound)
	})
}

func TestGraph_SetStart(t *testing.T) {
	g := sampleGraph() // b and c both flagged
	require.NoError(t, g.SetStart("a"))

	for _, n := range g.Nodes {
		assert.Equal(t, n.ID == "a", n.Data.IsStart, n.ID)
	}

	before := g.Clone()
	assert.ErrorIs(t, g.SetStart("missing"), ErrNodeNotFound)
	assert.Equal(t, before, g)
}

func TestGraph_AddEdge(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "s"}, {ID: "t"}}}

	e, err := g.AddEdge("s", "t")
	require.NoError(t, err)
	assert.Equal(t, "s", e.Source)
	assert.Equal(t, "t", e.Target)
	assert.Equal(t, EdgeType, e.Type)
	assert.Empty(t, e.Data.Condition)
	require.Len(t, g.Edges, 1)

	_, err = g.AddEdge("s", "t")
	assert.ErrorIs(t, err, ErrDuplicateEdge)
	assert.Len(t, g.Edges, 1)

	_, err = g.AddEdge("s", "s")
	assert.ErrorIs(t, err, ErrSelfLoop)
	assert.Len(t, g.Edges, 1)

	_, err = g.AddEdge("s", "ghost")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// Reverse direction is a different edge.
	_, err = g.AddEdge("t", "s")
	require.NoError(t, err)
	assert.Len(t, g.Edges, 2)
}

func TestGraph_EdgeUpdates(t *testing.T) {
	g := sampleGraph()

	require.NoError(t, g.UpdateEdgeCondition("e2", "always"))
	assert.Equal(t, "always", g.Edges[1].Data.Condition)
	assert.ErrorIs(t, g.UpdateEdgeCondition("nope", "x"), ErrEdgeNotFound)

	// e1 is a -> b; a -> c is free.
	require.NoError(t, g.UpdateEdgeTarget("e1", "c"))
	assert.Equal(t, "c", g.Edges[0].Target)
	assert.ErrorIs(t, g.UpdateEdgeTarget("e1", "a"), ErrSelfLoop)
	assert.ErrorIs(t, g.UpdateEdgeTarget("e1", "ghost"), ErrNodeNotFound)

	// b -> c already exists as e2, so pointing a second b-edge at c is refused.
	_, err := g.AddEdge("b", "a")
	require.NoError(t, err)
	last := g.Edges[len(g.Edges)-1]
	assert.ErrorIs(t, g.UpdateEdgeTarget(last.ID, "c"), ErrDuplicateEdge)

	require.NoError(t, g.RemoveEdge("e3"))
	assert.Equal(t, -1, g.edgeIndex("e3"))
	assert.ErrorIs(t, g.RemoveEdge("e3"), ErrEdgeNotFound)
}

func TestGraph_RemoveNode(t *testing.T) {
	g := sampleGraph()
	orig := g.Clone()

	require.NoError(t, g.RemoveNode("a"))
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "e2", g.Edges[0].ID)

	// The clone taken before is untouched.
	assert.Len(t, orig.Nodes, 3)
	assert.ErrorIs(t, g.RemoveNode("a"), ErrNodeNotFound)
}

func TestGraph_UpdateNode(t *testing.T) {
	g := sampleGraph()
	name := "Renamed"

	require.NoError(t, g.UpdateNode("a", NodePatch{Name: &name}))
	assert.Equal(t, "Renamed", g.Nodes[0].Data.Name)
	assert.Equal(t, "first", g.Nodes[0].Data.Description)

	require.NoError(t, g.MoveNode("a", Position{X: 1, Y: 2}))
	assert.Equal(t, Position{X: 1, Y: 2}, g.Nodes[0].Position)

	assert.ErrorIs(t, g.UpdateNode("zz", NodePatch{}), ErrNodeNotFound)
}

func TestGraph_Lint(t *testing.T) {
	assert.Empty(t, sampleGraph().Lint())

	g := Graph{
		Nodes: []Node{{ID: "a"}, {ID: "a"}, {ID: " "}},
		Edges: []Edge{{ID: "e", Source: "a", Target: "gone"}, {ID: "f", Source: "x", Target: "a"}},
	}
	assert.Equal(t, []Issue{
		{Message: "Duplicate node ID: a"},
		{Message: "Node has empty ID"},
		{Message: "Edge references missing target node: gone"},
		{Message: "Edge references missing source node: x"},
	}, g.Lint())
}
