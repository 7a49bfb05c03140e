package memory

import (
	"context"
	"sync"

	"github.com/meikuraledutech/flow"
)

// Store implements flow.Store in process memory. The collection is kept
// encoded so callers never share maps with it.
type Store struct {
	mu   sync.Mutex
	data []byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Load decodes the stored collection.
func (s *Store) Load(ctx context.Context) (flow.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flow.DecodeCollection(s.data), nil
}

// Save replaces the stored collection.
func (s *Store) Save(ctx context.Context, c flow.Collection) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Raw returns the encoded collection as last saved.
func (s *Store) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// SetRaw overwrites the stored bytes, bypassing encoding.
func (s *Store) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}
