package database

import (
	"context"
	"fmt"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/database/postgres"
	"github.com/payqr/payqr/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Tables holds the configurable table names
	Tables payqr.Tables `mapstructure:"tables"`
	// AutoMigrate runs migrations on startup when true
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Database is a connected metadata backend.
type Database interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Migrate creates the required tables.
	Migrate(ctx context.Context) error
	// Validate checks that the schema matches the expected structure.
	Validate(ctx context.Context) error
	// Repos returns the repository set backed by this database.
	Repos() payqr.Repos
	// Close releases the connection.
	Close() error
}

// Connect establishes a connection to the configured backend. Tables are
// validated before any backend is touched.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
