// Package database selects and connects a metadata backend for the token
// store, the access log, and payment templates.
//
// Two backends are supported: SQLite (modernc.org/sqlite, the default)
// and PostgreSQL (jackc/pgx). Connect returns a handle that can migrate
// and validate its schema and expose the repository set:
//
//	db, err := database.Connect(ctx, database.Config{
//		Type:   "sqlite",
//		DSN:    "payqr.db",
//		Tables: payqr.Tables{Tokens: "payqr_tokens", AccessLog: "payqr_access_log", Templates: "payqr_templates"},
//	})
//	repos := db.Repos()
//
// Table names are configurable so multi-tenant deployments can share a
// database; names are validated before any SQL is built from them.
package database
