// Package sqlite implements the payqr repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/payqr/payqr"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite-backed repositories.
type Database struct {
	db     *sql.DB
	tables payqr.Tables
}

// Connect opens a SQLite database.
// Tables should be validated before calling Connect.
func Connect(_ context.Context, dsn string, tables payqr.Tables) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &Database{db: db, tables: tables}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *Database) Migrate(ctx context.Context) error {
	if err := createTables(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	for _, v := range tableValidations(d.tables) {
		if err := validateTableSchema(ctx, d.db, v.tableName, v.expectedSchema); err != nil {
			return fmt.Errorf("validate schema %s: %w", v.tableName, err)
		}
	}
	return nil
}

// Repos returns the repository set for this database.
func (d *Database) Repos() payqr.Repos {
	return payqr.Repos{
		Tokens:    &tokenRepo{db: d.db, tableName: d.tables.Tokens},
		AccessLog: &accessLogRepo{db: d.db, tableName: d.tables.AccessLog},
		Templates: &templateRepo{db: d.db, tableName: d.tables.Templates},
	}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
