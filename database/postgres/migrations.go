package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payqr/payqr"
)

// quoteIdentifier quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func createTables(ctx context.Context, pool *pgxpool.Pool, tables payqr.Tables) error {
	stmts := []struct {
		name  string
		query string
	}{
		{tables.Tokens, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				secret TEXT NOT NULL,
				permissions JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				revoked_at TIMESTAMPTZ
			)`, quoteIdentifier(tables.Tokens))},
		{tables.AccessLog, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				token_id TEXT NOT NULL DEFAULT '',
				remote_addr TEXT NOT NULL,
				path TEXT NOT NULL,
				method TEXT NOT NULL,
				status_code INTEGER NOT NULL,
				ts BIGINT NOT NULL
			)`, quoteIdentifier(tables.AccessLog))},
		{tables.Templates, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				recipient TEXT NOT NULL,
				iban TEXT NOT NULL,
				bic TEXT NOT NULL DEFAULT '',
				amount TEXT NOT NULL,
				currency TEXT NOT NULL,
				purpose TEXT NOT NULL DEFAULT '',
				reference TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMPTZ
			)`, quoteIdentifier(tables.Templates))},
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt.query); err != nil {
			return fmt.Errorf("create table %s: %w", stmt.name, err)
		}
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (secret)`,
			quoteIdentifier("idx_"+tables.Tokens+"_secret"), quoteIdentifier(tables.Tokens)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (token_id)`,
			quoteIdentifier("idx_"+tables.AccessLog+"_token"), quoteIdentifier(tables.AccessLog)),
	}
	for _, query := range indexes {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
