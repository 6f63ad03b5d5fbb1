// Package postgres implements the payqr repositories on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payqr/payqr"
)

// Database provides PostgreSQL-backed repositories.
type Database struct {
	pool   *pgxpool.Pool
	tables payqr.Tables
}

// Connect opens a PostgreSQL connection pool.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables payqr.Tables) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Database{pool: pool, tables: tables}, nil
}

// NewDatabase wraps an existing pool. Useful for tests that manage the
// pool lifecycle themselves.
func NewDatabase(pool *pgxpool.Pool, tables payqr.Tables) *Database {
	return &Database{pool: pool, tables: tables}
}

// Ping verifies database connectivity.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *Database) Migrate(ctx context.Context) error {
	if err := createTables(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	for _, v := range tableValidations(d.tables) {
		if err := validateTableSchema(ctx, d.pool, v.tableName, v.expectedSchema); err != nil {
			return fmt.Errorf("validate schema %s: %w", v.tableName, err)
		}
	}
	return nil
}

// Repos returns the repository set for this database.
func (d *Database) Repos() payqr.Repos {
	return payqr.Repos{
		Tokens:    &tokenRepo{pool: d.pool, tableName: d.tables.Tokens},
		AccessLog: &accessLogRepo{pool: d.pool, tableName: d.tables.AccessLog},
		Templates: &templateRepo{pool: d.pool, tableName: d.tables.Templates},
	}
}

// Close releases the connection pool.
func (d *Database) Close() error {
	d.pool.Close()
	return nil
}
