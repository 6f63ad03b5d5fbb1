// Package config provides configuration loading and validation for payqr.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PAYQR_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with PAYQR_ prefix:
//   - server.port → PAYQR_SERVER_PORT
//   - database.type → PAYQR_DATABASE_TYPE
//   - auth.source → PAYQR_AUTH_SOURCE
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, optional TLS cert/key pair, interactive console toggle
//   - Database: type, DSN, table names, and auto-migration
//   - Auth: token source (config or database) and token definitions
//   - Audit: access log backend (database or file) and log file path
//   - CORS: cross-origin resource sharing settings
//   - Codec: payment code image size and error correction level
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Auth source must be config or database
//   - Audit backend must be database or file; a file backend needs a path
//   - Log level must be debug, info, warn, or error
package config
