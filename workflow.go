package flow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// StoredWorkflow is a named, timestamped persistence record wrapping
// editor-form graph state. Timestamps are unix milliseconds.
type StoredWorkflow struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt" validate:"gte=0"`
	UpdatedAt int64  `json:"updatedAt" validate:"gtefield=CreatedAt"`
	Schema    Graph  `json:"schema"`
}

// NewStoredWorkflow builds the record to persist for g. The id and creation
// time of existing are kept when it is non-nil. An empty title falls back
// to the existing title, then to the start node's name, then to DefaultTitle.
func NewStoredWorkflow(g Graph, existing *StoredWorkflow, title string, now time.Time) StoredWorkflow {
	ts := now.UnixMilli()
	w := StoredWorkflow{
		ID:        NewWorkflowID(),
		Title:     title,
		CreatedAt: ts,
		UpdatedAt: ts,
		Schema:    g.Clone(),
	}
	if existing != nil {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
		if w.Title == "" {
			w.Title = existing.Title
		}
	}
	if w.Title == "" {
		w.Title = defaultTitle(g)
	}
	return w
}

func defaultTitle(g Graph) string {
	if n, ok := g.StartNode(); ok && n.Data.Name != "" {
		return n.Data.Name
	}
	return DefaultTitle
}

// Collection is everything a Store persists: workflows by id plus the id
// of the workflow that was open last.
type Collection struct {
	Workflows            map[string]StoredWorkflow `json:"workflows"`
	LastActiveWorkflowID *string                   `json:"lastActiveWorkflowId"`
}

// EmptyCollection returns a collection with no workflows.
func EmptyCollection() Collection {
	return Collection{Workflows: map[string]StoredWorkflow{}}
}

// DecodeCollection reads a persisted collection. Anything that is not an
// object with a "workflows" object decodes as an empty collection, and a
// record that does not decode is skipped; corrupt storage is never an error.
func DecodeCollection(data []byte) Collection {
	var raw struct {
		Workflows            json.RawMessage `json:"workflows"`
		LastActiveWorkflowID json.RawMessage `json:"lastActiveWorkflowId"`
	}
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil {
		return EmptyCollection()
	}
	var records map[string]json.RawMessage
	if json.Unmarshal(raw.Workflows, &records) != nil || records == nil {
		return EmptyCollection()
	}
	c := EmptyCollection()
	for id, data := range records {
		var w StoredWorkflow
		if json.Unmarshal(data, &w) != nil {
			continue
		}
		c.Workflows[id] = w
	}
	var last string
	if json.Unmarshal(raw.LastActiveWorkflowID, &last) == nil {
		c.LastActiveWorkflowID = &last
	}
	return c
}

// Encode renders c for storage.
func (c Collection) Encode() ([]byte, error) {
	if c.Workflows == nil {
		c.Workflows = map[string]StoredWorkflow{}
	}
	return json.Marshal(c)
}

// Put inserts or replaces w, optionally marking it last active.
func (c *Collection) Put(w StoredWorkflow, setActive bool) error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWorkflow, describeValidation(err))
	}
	if c.Workflows == nil {
		c.Workflows = map[string]StoredWorkflow{}
	}
	c.Workflows[w.ID] = w
	if setActive {
		id := w.ID
		c.LastActiveWorkflowID = &id
	}
	return nil
}

// Delete removes a workflow. When it was the last active one, the most
// recently updated survivor takes its place, or nothing if none is left.
func (c *Collection) Delete(id string) {
	delete(c.Workflows, id)
	if c.LastActiveWorkflowID == nil || *c.LastActiveWorkflowID != id {
		return
	}
	c.LastActiveWorkflowID = nil
	if recent := c.Recent(); len(recent) > 0 {
		next := recent[0].ID
		c.LastActiveWorkflowID = &next
	}
}

// Get returns the workflow stored under id.
func (c Collection) Get(id string) (StoredWorkflow, bool) {
	w, ok := c.Workflows[id]
	return w, ok
}

// LastActive returns the workflow that was open last, if it still exists.
func (c Collection) LastActive() (StoredWorkflow, bool) {
	if c.LastActiveWorkflowID == nil {
		return StoredWorkflow{}, false
	}
	return c.Get(*c.LastActiveWorkflowID)
}

// Recent lists workflows newest first by update time, ties broken by id.
func (c Collection) Recent() []StoredWorkflow {
	out := make([]StoredWorkflow, 0, len(c.Workflows))
	for _, w := range c.Workflows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}
