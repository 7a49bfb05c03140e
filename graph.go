package flow

import (
	"fmt"
	"strings"
)

// DefaultNodeName is the display name given to nodes added without one.
const DefaultNodeName = "New Node"

// Every mutation below either applies completely or returns an error and
// leaves the graph untouched.

// AddNode appends a node with a fresh id, offset from the existing nodes
// so it does not land exactly on top of one.
func (g *Graph) AddNode(name string) Node {
	if name == "" {
		name = DefaultNodeName
	}
	n := len(g.Nodes)
	node := Node{
		ID:       NewNodeID(),
		Type:     NodeType,
		Position: Position{X: float64(100 + n*50), Y: float64(200 + n*50)},
		Data:     NodeData{Name: name},
	}
	g.Nodes = append(g.Nodes, node)
	return node
}

// NodePatch lists the display fields to replace; nil fields are left alone.
type NodePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateNode replaces the display fields set in p.
func (g *Graph) UpdateNode(id string, p NodePatch) error {
	i := g.nodeIndex(id)
	if i < 0 {
		return ErrNodeNotFound
	}
	if p.Name != nil {
		g.Nodes[i].Data.Name = *p.Name
	}
	if p.Description != nil {
		g.Nodes[i].Data.Description = *p.Description
	}
	return nil
}

// MoveNode sets a node's canvas position.
func (g *Graph) MoveNode(id string, pos Position) error {
	i := g.nodeIndex(id)
	if i < 0 {
		return ErrNodeNotFound
	}
	g.Nodes[i].Position = pos
	return nil
}

// RenameNode changes a node id and rewrites every edge endpoint that
// referenced the old one. The new id is trimmed and must not be taken.
func (g *Graph) RenameNode(oldID, newID string) error {
	i := g.nodeIndex(oldID)
	if i < 0 {
		return ErrNodeNotFound
	}
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return ErrEmptyNodeID
	}
	if newID == oldID {
		return nil
	}
	if g.nodeIndex(newID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, newID)
	}

	g.Nodes[i].ID = newID
	for j := range g.Edges {
		if g.Edges[j].Source == oldID {
			g.Edges[j].Source = newID
		}
		if g.Edges[j].Target == oldID {
			g.Edges[j].Target = newID
		}
	}
	return nil
}

// SetStart flags id as the start node and clears the flag everywhere else.
func (g *Graph) SetStart(id string) error {
	if g.nodeIndex(id) < 0 {
		return ErrNodeNotFound
	}
	for i := range g.Nodes {
		g.Nodes[i].Data.IsStart = g.Nodes[i].ID == id
	}
	return nil
}

// RemoveNode deletes a node together with every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	i := g.nodeIndex(id)
	if i < 0 {
		return ErrNodeNotFound
	}
	g.Nodes = append(g.Nodes[:i:i], g.Nodes[i+1:]...)
	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	return nil
}

// AddEdge connects source to target with an empty condition.
// Self-loops and a second edge between the same ordered pair are refused.
func (g *Graph) AddEdge(source, target string) (Edge, error) {
	if g.nodeIndex(source) < 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if g.nodeIndex(target) < 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	if source == target {
		return Edge{}, ErrSelfLoop
	}
	if g.hasEdge(source, target) {
		return Edge{}, ErrDuplicateEdge
	}
	e := Edge{
		ID:     NewEdgeID(),
		Type:   EdgeType,
		Source: source,
		Target: target,
	}
	g.Edges = append(g.Edges, e)
	return e, nil
}

// RemoveEdge deletes an edge by id.
func (g *Graph) RemoveEdge(id string) error {
	i := g.edgeIndex(id)
	if i < 0 {
		return ErrEdgeNotFound
	}
	g.Edges = append(g.Edges[:i:i], g.Edges[i+1:]...)
	return nil
}

// UpdateEdgeCondition replaces an edge's condition label.
func (g *Graph) UpdateEdgeCondition(id, condition string) error {
	i := g.edgeIndex(id)
	if i < 0 {
		return ErrEdgeNotFound
	}
	g.Edges[i].Data.Condition = condition
	return nil
}

// UpdateEdgeTarget points an existing edge at a different node.
func (g *Graph) UpdateEdgeTarget(id, target string) error {
	i := g.edgeIndex(id)
	if i < 0 {
		return ErrEdgeNotFound
	}
	if g.nodeIndex(target) < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	e := g.Edges[i]
	if e.Target == target {
		return nil
	}
	if e.Source == target {
		return ErrSelfLoop
	}
	if g.hasEdge(e.Source, target) {
		return ErrDuplicateEdge
	}
	g.Edges[i].Target = target
	return nil
}

func (g Graph) hasEdge(source, target string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// Issue is a problem Lint found in an editable graph.
type Issue struct {
	Message string `json:"message"`
}

// Lint reports every problem that would make the exported schema fail to
// import: empty or repeated node ids and edges pointing at missing nodes.
// Unlike ValidateSchema it does not stop at the first one.
func (g Graph) Lint() []Issue {
	var issues []Issue
	ids := make(map[string]bool, len(g.Nodes))
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, n := range g.Nodes {
		switch {
		case strings.TrimSpace(n.ID) == "":
			issues = append(issues, Issue{Message: "Node has empty ID"})
		case seen[n.ID]:
			issues = append(issues, Issue{Message: "Duplicate node ID: " + n.ID})
		default:
			seen[n.ID] = true
		}
	}
	for _, e := range g.Edges {
		if !ids[e.Source] {
			issues = append(issues, Issue{Message: "Edge references missing source node: " + e.Source})
		}
		if !ids[e.Target] {
			issues = append(issues, Issue{Message: "Edge references missing target node: " + e.Target})
		}
	}
	return issues
}
