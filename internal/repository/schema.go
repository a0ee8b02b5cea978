package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the application tables. River manages its own tables via
// rivermigrate in main. The unique index on external_event_id is the
// concurrency guard for purchase idempotency: a racing duplicate insert is
// rejected instead of crediting twice.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			payment_customer_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			reference_id TEXT,
			external_event_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS transactions_external_event_id_key
			ON transactions (external_event_id) WHERE external_event_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS transactions_reference_id_idx
			ON transactions (reference_id) WHERE reference_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS transactions_reserved_created_idx
			ON transactions (created_at) WHERE type = 'reserve' AND status = 'reserved'`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			log TEXT NOT NULL DEFAULT '',
			video_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
