package flow

// Type tags attached to editor-form nodes and edges.
const (
	NodeType = "flowNode"
	EdgeType = "flowEdge"
)

// Graph is the editable form of a workflow: nodes carry layout and display
// data, edges carry a condition label.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a vertex in the editable graph.
// Position is editor-only and never reaches the portable schema.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type,omitempty"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// NodeData holds the display fields of a node.
type NodeData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsStart     bool   `json:"isStart"`
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge represents a directed, optionally conditioned connection between two nodes.
type Edge struct {
	ID     string   `json:"id"`
	Type   string   `json:"type,omitempty"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Data   EdgeData `json:"data"`
}

// EdgeData holds the condition label of an edge.
type EdgeData struct {
	Condition string `json:"condition"`
}

// DefaultTitle is used for workflows that were never named.
const DefaultTitle = "Untitled"

// BlankGraph returns the graph a new workflow starts with: a single start node.
func BlankGraph() Graph {
	return Graph{
		Nodes: []Node{{
			ID:       "start",
			Type:     NodeType,
			Position: Position{X: 250, Y: 50},
			Data:     NodeData{Name: "Start", Description: "Entry point", IsStart: true},
		}},
		Edges: []Edge{},
	}
}

// Clone returns a deep copy of g. Nil slices come back empty.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// StartNode returns the first node flagged as start.
func (g Graph) StartNode() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Data.IsStart {
			return n, true
		}
	}
	return Node{}, false
}

func (g Graph) nodeIndex(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (g Graph) edgeIndex(id string) int {
	for i, e := range g.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}
