package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/flow"
)

// Load reads every workflow plus the last active pointer.
// Rows whose schema column does not decode as a graph are skipped.
func (s *PGStore) Load(ctx context.Context) (flow.Collection, error) {
	c := flow.EmptyCollection()

	rows, err := s.db.Query(ctx,
		`SELECT id, title, created_at, updated_at, schema FROM flow_workflows ORDER BY updated_at DESC`)
	if err != nil {
		return flow.Collection{}, fmt.Errorf("flow: query workflows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w   flow.StoredWorkflow
			raw []byte
		)
		if err := rows.Scan(&w.ID, &w.Title, &w.CreatedAt, &w.UpdatedAt, &raw); err != nil {
			return flow.Collection{}, fmt.Errorf("flow: scan workflow: %w", err)
		}
		if err := json.Unmarshal(raw, &w.Schema); err != nil {
			continue
		}
		c.Workflows[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return flow.Collection{}, fmt.Errorf("flow: rows workflows: %w", err)
	}

	var last *string
	err = s.db.QueryRow(ctx,
		`SELECT last_active_id FROM flow_state WHERE key = $1`, flow.StorageKey,
	).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return flow.Collection{}, fmt.Errorf("flow: query state: %w", err)
	}
	c.LastActiveWorkflowID = last

	return c, nil
}

// Save replaces the stored collection in one transaction.
func (s *PGStore) Save(ctx context.Context, c flow.Collection) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: whatever is not in c goes.
	if _, err := tx.Exec(ctx, `DELETE FROM flow_workflows`); err != nil {
		return fmt.Errorf("flow: delete workflows: %w", err)
	}

	for _, w := range c.Workflows {
		g := w.Schema
		if g.Nodes == nil || g.Edges == nil {
			g = g.Clone()
		}
		raw, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("flow: encode workflow %s: %w", w.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_workflows (id, title, created_at, updated_at, schema) VALUES ($1, $2, $3, $4, $5)`,
			w.ID, w.Title, w.CreatedAt, w.UpdatedAt, json.RawMessage(raw),
		); err != nil {
			return fmt.Errorf("flow: insert workflow %s: %w", w.ID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO flow_state (key, last_active_id) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET last_active_id = EXCLUDED.last_active_id`,
		flow.StorageKey, c.LastActiveWorkflowID,
	); err != nil {
		return fmt.Errorf("flow: upsert state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("flow: commit: %w", err)
	}
	return nil
}
