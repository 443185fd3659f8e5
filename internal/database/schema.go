package database

import (
	"context"
	"fmt"
)

// schemaDDL is idempotent: unique natural keys on items.name and
// sources.name back the atomic get-or-create, and the foreign keys on
// price_records make orphan observations unrepresentable.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS items (
		item_id BIGSERIAL PRIMARY KEY,
		name    TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		source_id       BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		commission_rate NUMERIC(6,4) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS price_records (
		record_id        BIGSERIAL PRIMARY KEY,
		item_id          BIGINT NOT NULL REFERENCES items(item_id),
		source_id        BIGINT NOT NULL REFERENCES sources(source_id),
		price            NUMERIC(14,4) NOT NULL,
		price_after_sell NUMERIC(14,4),
		retrieved_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_records_item_source
		ON price_records (item_id, source_id, retrieved_at DESC)`,
}

// EnsureSchema creates the relational schema if it does not exist yet.
// Run once at pipeline start, before any ingestion.
func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
