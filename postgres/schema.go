package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flow_workflows (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    schema     JSONB NOT NULL DEFAULT '{"nodes":[],"edges":[]}'
);

CREATE TABLE IF NOT EXISTS flow_state (
    key            TEXT PRIMARY KEY,
    last_active_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_flow_workflows_updated ON flow_workflows(updated_at DESC);
`

// CreateSchema creates the flow_workflows and flow_state tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the flow_workflows and flow_state tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flow_workflows, flow_state CASCADE;`)
	return err
}
