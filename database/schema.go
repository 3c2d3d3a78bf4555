package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the persistence tables on startup. Vector data is
// deliberately absent: indexes live in memory and are rebuilt from the
// persisted folder path.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			user_name TEXT,
			locale TEXT,
			folder TEXT,
			access_granted BOOLEAN NOT NULL DEFAULT FALSE,
			last_active_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL,
			user_id BIGINT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_turns_user_created ON conversation_turns(user_id, created_at)",
		`CREATE TABLE IF NOT EXISTS event_log (
			id UUID PRIMARY KEY,
			user_id BIGINT,
			kind TEXT NOT NULL,
			input TEXT,
			output TEXT,
			conversation_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_event_log_user ON event_log(user_id, created_at)",
		`CREATE TABLE IF NOT EXISTS exception_log (
			id UUID PRIMARY KEY,
			user_id BIGINT,
			operation TEXT NOT NULL,
			detail TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
