package flow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Service runs load-modify-save cycles against a Store one at a time.
type Service struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns saved workflows, most recently updated first.
func (s *Service) List(ctx context.Context) ([]StoredWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: load: %w", err)
	}
	return c.Recent(), nil
}

// Get fetches a single workflow.
// Returns nil, nil if not found.
func (s *Service) Get(ctx context.Context, id string) (*StoredWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: load: %w", err)
	}
	w, ok := c.Get(id)
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// LastActive returns the workflow that was open last.
// Returns nil, nil if there is none.
func (s *Service) LastActive(ctx context.Context) (*StoredWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: load: %w", err)
	}
	w, ok := c.LastActive()
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// Create saves g as a new workflow and marks it last active.
func (s *Service) Create(ctx context.Context, title string, g Graph) (*StoredWorkflow, error) {
	w := NewStoredWorkflow(g, nil, title, s.now())
	if err := s.Put(ctx, w, true); err != nil {
		return nil, err
	}
	return &w, nil
}

// Import validates a portable schema document and saves it as a new workflow
// titled after its start node.
func (s *Service) Import(ctx context.Context, data []byte) (*StoredWorkflow, error) {
	schema, err := ParseSchema(data)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, "", FromSchema(schema))
}

// Put inserts or replaces w as given.
func (s *Service) Put(ctx context.Context, w StoredWorkflow, setActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("flow: load: %w", err)
	}
	if err := c.Put(w, setActive); err != nil {
		return err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("flow: save: %w", err)
	}
	return nil
}

// Update applies fn to a copy of the stored workflow and saves the result
// with a fresh update time. If fn fails nothing is written.
// Returns ErrWorkflowNotFound if the workflow doesn't exist.
func (s *Service) Update(ctx context.Context, id string, fn func(*StoredWorkflow) error) (*StoredWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: load: %w", err)
	}
	w, ok := c.Get(id)
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	w.Schema = w.Schema.Clone()
	if err := fn(&w); err != nil {
		return nil, err
	}
	w.ID = id
	w.UpdatedAt = s.now().UnixMilli()
	if err := c.Put(w, true); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("flow: save: %w", err)
	}
	return &w, nil
}

// UpdateGraph is Update restricted to the graph.
func (s *Service) UpdateGraph(ctx context.Context, id string, fn func(*Graph) error) (*StoredWorkflow, error) {
	return s.Update(ctx, id, func(w *StoredWorkflow) error {
		return fn(&w.Schema)
	})
}

// Delete removes a workflow.
// No error if the workflow doesn't exist.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("flow: load: %w", err)
	}
	if _, ok := c.Get(id); !ok {
		return nil
	}
	c.Delete(id)
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("flow: save: %w", err)
	}
	return nil
}
