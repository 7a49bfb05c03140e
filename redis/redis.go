package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/meikuraledutech/flow"
)

// Store implements flow.Store on a single Redis string key.
type Store struct {
	client *goredis.Client
	key    string
}

// New creates a Store using client. An empty key means flow.StorageKey.
func New(client *goredis.Client, key string) *Store {
	if key == "" {
		key = flow.StorageKey
	}
	return &Store{client: client, key: key}
}

// Load reads the collection. A missing key or unreadable value loads as empty.
func (s *Store) Load(ctx context.Context) (flow.Collection, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return flow.EmptyCollection(), nil
	}
	if err != nil {
		return flow.Collection{}, fmt.Errorf("flow: redis get: %w", err)
	}
	return flow.DecodeCollection(data), nil
}

// Save overwrites the key with the encoded collection.
func (s *Store) Save(ctx context.Context, c flow.Collection) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("flow: encode collection: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("flow: redis set: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
