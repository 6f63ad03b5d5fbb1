package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/payqr/payqr"
)

// quoteIdentifier quotes a SQLite identifier.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func createTables(ctx context.Context, db *sql.DB, tables payqr.Tables) error {
	stmts := []struct {
		name  string
		query string
	}{
		{tables.Tokens, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				secret TEXT NOT NULL,
				permissions TEXT NOT NULL,
				created_at TEXT NOT NULL,
				revoked_at TEXT
			)`, quoteIdentifier(tables.Tokens))},
		{tables.AccessLog, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				token_id TEXT NOT NULL DEFAULT '',
				remote_addr TEXT NOT NULL,
				path TEXT NOT NULL,
				method TEXT NOT NULL,
				status_code INTEGER NOT NULL,
				ts INTEGER NOT NULL
			)`, quoteIdentifier(tables.AccessLog))},
		{tables.Templates, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				recipient TEXT NOT NULL,
				iban TEXT NOT NULL,
				bic TEXT NOT NULL DEFAULT '',
				amount TEXT NOT NULL,
				currency TEXT NOT NULL,
				purpose TEXT NOT NULL DEFAULT '',
				reference TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				deleted_at TEXT
			)`, quoteIdentifier(tables.Templates))},
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt.query); err != nil {
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
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
