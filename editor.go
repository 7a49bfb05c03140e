package flow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultAutosaveDelay is how long the editor waits after the last change
// before persisting.
const DefaultAutosaveDelay = 500 * time.Millisecond

// EditorConfig tunes an Editor. Zero values pick the defaults.
type EditorConfig struct {
	AutosaveDelay time.Duration
	Logger        *slog.Logger
}

// Editor holds the authoritative in-memory graph of one editing session.
// Persistence trails it: every change schedules a save, and changes made
// within the autosave delay collapse into a single write.
type Editor struct {
	svc      *Service
	logger   *slog.Logger
	debounce func(func())

	mu         sync.Mutex
	graph      Graph
	workflowID string
	title      string
	lastSaved  string
	pending    bool
	closed     bool
}

// NewEditor creates an editor showing a blank, unsaved workflow.
func NewEditor(svc *Service, cfg EditorConfig) *Editor {
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = DefaultAutosaveDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Editor{
		svc:      svc,
		logger:   cfg.Logger,
		debounce: debounce.New(cfg.AutosaveDelay),
	}
	e.resetLocked()
	return e
}

// Open restores the workflow that was open last. Storage failures are
// logged and leave the blank workflow in place.
func (e *Editor) Open(ctx context.Context) {
	w, err := e.svc.LastActive(ctx)
	if err != nil {
		e.logger.Warn("restore last workflow", slog.String("error", err.Error()))
		return
	}
	if w == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked(*w)
}

// Graph returns a copy of the current graph.
func (e *Editor) Graph() Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Clone()
}

// Title returns the current workflow title.
func (e *Editor) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

// WorkflowID returns the id of the stored workflow being edited, or "" if
// it has never been saved.
func (e *Editor) WorkflowID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workflowID
}

// IsDirty reports whether the graph differs from what was last saved or loaded.
func (e *Editor) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked() != e.lastSaved
}

// Update runs fn against a copy of the graph and keeps the result only if
// fn succeeds.
func (e *Editor) Update(fn func(*Graph) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.graph.Clone()
	if err := fn(&g); err != nil {
		return err
	}
	e.graph = g
	e.scheduleLocked()
	return nil
}

// SetTitle renames the workflow.
func (e *Editor) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title = title
	e.scheduleLocked()
}

// Save persists the current state right away.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	return e.saveLocked(ctx, true)
}

// New starts a blank workflow. With saveFirst, unsaved changes to the
// current one are written before it is dropped; otherwise they are discarded.
func (e *Editor) New(ctx context.Context, saveFirst bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	if saveFirst && e.snapshotLocked() != e.lastSaved {
		if err := e.saveLocked(ctx, true); err != nil {
			return err
		}
	}
	e.resetLocked()
	e.scheduleLocked()
	return nil
}

// Import replaces the graph with the contents of a portable schema document.
// On failure the editor is left unchanged and the error carries the message
// to show the user.
func (e *Editor) Import(data []byte) error {
	schema, err := ParseSchema(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = FromSchema(schema)
	if schema.StartNodeID != nil {
		for _, n := range schema.Nodes {
			if n.ID == *schema.StartNodeID && n.Name != "" {
				e.title = n.Name
				break
			}
		}
	}
	e.scheduleLocked()
	return nil
}

// Export renders the current graph as a portable schema document and the
// file name it should be downloaded as.
func (e *Editor) Export() (string, []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := MarshalSchema(ToSchema(e.graph))
	if err != nil {
		return "", nil, err
	}
	return ExportFilename(e.title), data, nil
}

// Preview returns the schema the graph currently exports as, together with
// any lint issues.
func (e *Editor) Preview() (Schema, []Issue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ToSchema(e.graph), e.graph.Lint()
}

// Load switches to a saved workflow. A pending save of the current one is
// flushed first.
func (e *Editor) Load(ctx context.Context, id string) error {
	w, err := e.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return ErrWorkflowNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked(ctx)
	e.loadLocked(*w)
	return nil
}

// Delete removes a saved workflow. Deleting the one being edited switches
// to the new last active workflow, or to a blank one.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if err := e.svc.Delete(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if id != e.workflowID {
		return nil
	}
	e.cancelLocked()
	next, err := e.svc.LastActive(ctx)
	if err != nil {
		e.logger.Warn("load next workflow", slog.String("error", err.Error()))
	}
	if next != nil {
		e.loadLocked(*next)
	} else {
		e.resetLocked()
	}
	return nil
}

// Close writes any pending change and stops autosaving. Later changes
// stay in memory until Save is called.
func (e *Editor) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked(ctx)
	e.closed = true
}

func (e *Editor) resetLocked() {
	e.graph = BlankGraph()
	e.workflowID = ""
	e.title = DefaultTitle
	e.lastSaved = e.snapshotLocked()
}

func (e *Editor) loadLocked(w StoredWorkflow) {
	e.graph = w.Schema.Clone()
	e.workflowID = w.ID
	e.title = w.Title
	if e.title == "" {
		e.title = DefaultTitle
	}
	e.lastSaved = e.snapshotLocked()
}

func (e *Editor) snapshotLocked() string {
	data, err := json.Marshal(e.graph)
	if err != nil {
		return ""
	}
	return string(data)
}

func (e *Editor) scheduleLocked() {
	if e.closed {
		return
	}
	e.pending = true
	e.debounce(e.autosave)
}

// cancelLocked drops a scheduled save by replacing it with a no-op.
func (e *Editor) cancelLocked() {
	if e.pending {
		e.pending = false
		e.debounce(func() {})
	}
}

func (e *Editor) flushLocked(ctx context.Context) {
	if !e.pending {
		return
	}
	e.cancelLocked()
	if err := e.saveLocked(ctx, false); err != nil {
		e.logger.Error("flush workflow", slog.String("workflow", e.workflowID), slog.String("error", err.Error()))
	}
}

func (e *Editor) autosave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.pending {
		return
	}
	e.pending = false
	if err := e.saveLocked(context.Background(), false); err != nil {
		e.logger.Error("autosave workflow", slog.String("workflow", e.workflowID), slog.String("error", err.Error()))
	}
}

// saveLocked writes the current state. Unless force is set, nothing is
// written when neither the graph nor the title changed since the last save.
func (e *Editor) saveLocked(ctx context.Context, force bool) error {
	snapshot := e.snapshotLocked()
	title := e.title
	if title == "" {
		title = DefaultTitle
	}

	var existing *StoredWorkflow
	if e.workflowID != "" {
		w, err := e.svc.Get(ctx, e.workflowID)
		if err != nil {
			return err
		}
		existing = w
	}
	if !force && existing != nil && existing.Title == title && snapshot == e.lastSaved {
		return nil
	}

	w := NewStoredWorkflow(e.graph, existing, title, e.svc.now())
	if err := e.svc.Put(ctx, w, true); err != nil {
		return err
	}
	e.workflowID = w.ID
	e.title = w.Title
	e.lastSaved = snapshot
	e.logger.Debug("workflow saved", slog.String("workflow", w.ID), slog.String("title", w.Title))
	return nil
}
