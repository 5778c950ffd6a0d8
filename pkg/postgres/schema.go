package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		content_hash    TEXT NOT NULL,
		content_size    INTEGER NOT NULL,
		idempotency_key TEXT UNIQUE,
		status          TEXT NOT NULL DEFAULT 'PENDING',
		error           TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		indexed_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS documents_name_idx ON documents (name)`,
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the documents and analytics_snapshots tables if
// they do not exist. All statements apply in one transaction, so two
// services starting together never see a half-built schema.
func (c *Client) EnsureSchema(ctx context.Context) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
