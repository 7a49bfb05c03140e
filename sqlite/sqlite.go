package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meikuraledutech/flow"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store implements flow.Store on a SQLite key/value table, keeping the
// whole collection as one JSON document under flow.StorageKey.
type Store struct {
	db  *sql.DB
	key string
}

// Open opens (or creates) the SQLite file at path and prepares the table.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("flow: create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("flow: open sqlite: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. CreateSchema must have been run on it.
func New(db *sql.DB) *Store {
	return &Store{db: db, key: flow.StorageKey}
}

// CreateSchema creates the kv table if it doesn't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("flow: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the collection. A missing row or unreadable document loads as empty.
func (s *Store) Load(ctx context.Context) (flow.Collection, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return flow.EmptyCollection(), nil
	}
	if err != nil {
		return flow.Collection{}, fmt.Errorf("flow: read collection: %w", err)
	}
	return flow.DecodeCollection([]byte(raw)), nil
}

// Save writes the collection, replacing the previous document.
func (s *Store) Save(ctx context.Context, c flow.Collection) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("flow: encode collection: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("flow: write collection: %w", err)
	}
	return nil
}

// SetRaw stores data under the collection key as is.
func (s *Store) SetRaw(ctx context.Context, data string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.key, data,
	)
	return err
}
