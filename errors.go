package flow

import "errors"

var (
	ErrNodeNotFound     = errors.New("flow: node not found")
	ErrEdgeNotFound     = errors.New("flow: edge not found")
	ErrWorkflowNotFound = errors.New("flow: workflow not found")
	ErrEmptyNodeID      = errors.New("flow: node id is empty")
	ErrDuplicateNodeID  = errors.New("flow: node id already in use")
	ErrDuplicateEdge    = errors.New("flow: edge already exists")
	ErrSelfLoop         = errors.New("flow: edge source and target are the same node")
	ErrInvalidWorkflow  = errors.New("flow: invalid workflow record")

	// ErrMalformedJSON is wrapped by ParseError.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrInvalidSchema is wrapped by SchemaError.
	ErrInvalidSchema = errors.New("invalid schema")
)

// ParseError reports an import payload that is not valid JSON.
type ParseError struct {
	Err error // underlying decoder error
}

func (e *ParseError) Error() string { return "Invalid JSON file" }

func (e *ParseError) Unwrap() []error { return []error{ErrMalformedJSON, e.Err} }

// SchemaError reports the first rule a document broke during validation.
// Msg is the human-readable text shown to the user.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return "Invalid schema: " + e.Msg }

func (e *SchemaError) Unwrap() error { return ErrInvalidSchema }
