package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseSchema decodes an import payload and validates it.
// Unparsable input yields a *ParseError, a well-formed document of the
// wrong shape a *SchemaError.
func ParseSchema(data []byte) (Schema, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return Schema{}, &ParseError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Schema{}, &ParseError{Err: fmt.Errorf("trailing data after document")}
	}
	return ValidateSchema(v)
}

// ValidateSchema checks that v, a value produced by encoding/json, has the
// shape of a portable schema and normalizes it. Checks run in order and
// the first failure is returned; later problems are not reported.
func ValidateSchema(v any) (Schema, error) {
	st := &schemaCheck{raw: v}
	for _, check := range schemaChecks {
		if err := check(st); err != nil {
			return Schema{}, err
		}
	}
	return st.out, nil
}

// schemaCheck carries state between the ordered checks.
type schemaCheck struct {
	raw      any
	obj      map[string]any
	rawNodes []any
	rawEdges []any
	ids      map[string]bool
	out      Schema
}

var schemaChecks = []func(*schemaCheck) error{
	checkObject,
	checkNodesArray,
	checkEdgesArray,
	checkNodes,
	checkEdges,
	resolveStart,
}

func checkObject(st *schemaCheck) error {
	obj, ok := st.raw.(map[string]any)
	if !ok || obj == nil {
		return &SchemaError{Msg: "expected an object"}
	}
	st.obj = obj
	return nil
}

func checkNodesArray(st *schemaCheck) error {
	nodes, ok := st.obj["nodes"].([]any)
	if !ok {
		return &SchemaError{Msg: "missing or invalid nodes array"}
	}
	st.rawNodes = nodes
	return nil
}

func checkEdgesArray(st *schemaCheck) error {
	edges, ok := st.obj["edges"].([]any)
	if !ok {
		return &SchemaError{Msg: "missing or invalid edges array"}
	}
	st.rawEdges = edges
	return nil
}

func checkNodes(st *schemaCheck) error {
	st.ids = make(map[string]bool, len(st.rawNodes))
	st.out.Nodes = make([]SchemaNode, 0, len(st.rawNodes))
	for i, raw := range st.rawNodes {
		n, ok := raw.(map[string]any)
		if !ok || n == nil {
			return &SchemaError{Msg: fmt.Sprintf("node at index %d is invalid", i)}
		}
		id := coerceString(n["id"], fmt.Sprintf("node_%d", i))
		if st.ids[id] {
			return &SchemaError{Msg: "duplicate node id: " + id}
		}
		st.ids[id] = true
		isStart, _ := n["isStart"].(bool)
		st.out.Nodes = append(st.out.Nodes, SchemaNode{
			ID:          id,
			Name:        coerceString(n["name"], ""),
			Description: coerceString(n["description"], ""),
			IsStart:     isStart,
		})
	}
	return nil
}

func checkEdges(st *schemaCheck) error {
	st.out.Edges = make([]SchemaEdge, 0, len(st.rawEdges))
	for i, raw := range st.rawEdges {
		e, ok := raw.(map[string]any)
		if !ok || e == nil {
			return &SchemaError{Msg: fmt.Sprintf("edge at index %d is invalid", i)}
		}
		source := coerceString(e["source"], "")
		target := coerceString(e["target"], "")
		if !st.ids[source] {
			return &SchemaError{Msg: "edge references missing source node: " + source}
		}
		if !st.ids[target] {
			return &SchemaError{Msg: "edge references missing target node: " + target}
		}
		id, ok := e["id"].(string)
		if !ok {
			id = fmt.Sprintf("edge_%d", i)
		}
		st.out.Edges = append(st.out.Edges, SchemaEdge{
			ID:        id,
			Source:    source,
			Target:    target,
			Condition: coerceString(e["condition"], ""),
		})
	}
	return nil
}

func resolveStart(st *schemaCheck) error {
	if id, ok := st.obj["startNodeId"].(string); ok && st.ids[id] {
		st.out.StartNodeID = &id
		return nil
	}
	for _, n := range st.out.Nodes {
		if n.IsStart {
			id := n.ID
			st.out.StartNodeID = &id
			return nil
		}
	}
	return nil
}

// coerceString renders a decoded JSON value the way a JavaScript String()
// call would. A missing or null value yields def.
func coerceString(v any, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return formatNumber(f)
		}
		return x.String()
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = coerceString(el, "")
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads negative exponents to two digits (1e-07).
		if i := strings.Index(s, "e-0"); i >= 0 {
			s = s[:i+2] + s[i+3:]
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
