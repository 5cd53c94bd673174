package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the document tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'generating', 'ready', 'error')),
			content TEXT NOT NULL DEFAULT '{}',
			file_url TEXT,
			file_type TEXT,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.Documents),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			document_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			version INTEGER NOT NULL CHECK (version > 0),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (document_id, version)
		)`, tables.Snapshots, tables.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_user_updated ON %s (user_id, updated_at DESC)`,
			tables.Prefix, tables.Documents),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the document tables (snapshots first for the foreign key).
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Snapshots, tables.Documents} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// ClearUserData deletes every document of userID. Snapshots go with them.
func ClearUserData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, userID string) (int64, error) {
	tag, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents+" WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	return tag.RowsAffected(), nil
}
