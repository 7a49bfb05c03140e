package flow

import (
	"encoding/json"
	"strings"
)

// Schema is the portable JSON document a workflow is exported as and
// imported from. It carries no layout.
type Schema struct {
	Nodes       []SchemaNode `json:"nodes"`
	Edges       []SchemaEdge `json:"edges"`
	StartNodeID *string      `json:"startNodeId"`
}

// SchemaNode is a node in portable form.
type SchemaNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsStart     bool   `json:"isStart"`
}

// SchemaEdge is an edge in portable form.
type SchemaEdge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition"`
}

// Layout of nodes placed by FromSchema.
const (
	layoutOriginX = 100
	layoutOriginY = 100
	layoutStepX   = 220
)

// ToSchema maps an editable graph to its portable form.
func ToSchema(g Graph) Schema {
	s := Schema{
		Nodes: make([]SchemaNode, 0, len(g.Nodes)),
		Edges: make([]SchemaEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		s.Nodes = append(s.Nodes, SchemaNode{
			ID:          n.ID,
			Name:        n.Data.Name,
			Description: n.Data.Description,
			IsStart:     n.Data.IsStart,
		})
		if n.Data.IsStart && s.StartNodeID == nil {
			id := n.ID
			s.StartNodeID = &id
		}
	}
	for _, e := range g.Edges {
		s.Edges = append(s.Edges, SchemaEdge{
			ID:        e.ID,
			Source:    e.Source,
			Target:    e.Target,
			Condition: e.Data.Condition,
		})
	}
	return s
}

// FromSchema maps a validated schema to editor form, laying nodes out
// left to right on a single row.
func FromSchema(s Schema) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(s.Nodes)),
		Edges: make([]Edge, 0, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		g.Nodes = append(g.Nodes, Node{
			ID:   n.ID,
			Type: NodeType,
			Position: Position{
				X: float64(layoutOriginX + i*layoutStepX),
				Y: layoutOriginY,
			},
			Data: NodeData{
				Name:        n.Name,
				Description: n.Description,
				IsStart:     n.IsStart,
			},
		})
	}
	for _, e := range s.Edges {
		g.Edges = append(g.Edges, Edge{
			ID:     e.ID,
			Type:   EdgeType,
			Source: e.Source,
			Target: e.Target,
			Data:   EdgeData{Condition: e.Condition},
		})
	}
	return g
}

// MarshalSchema renders s the way it is exported and previewed:
// indented with two spaces, empty collections as [].
func MarshalSchema(s Schema) ([]byte, error) {
	if s.Nodes == nil {
		s.Nodes = []SchemaNode{}
	}
	if s.Edges == nil {
		s.Edges = []SchemaEdge{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// ExportFilename derives the download name for a workflow title.
// Anything outside [A-Za-z0-9_-] becomes a dash.
func ExportFilename(title string) string {
	if title == "" {
		title = "untitled"
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, title)
	return "workflow-" + safe + ".json"
}
