package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payqr/payqr"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

var tokensTableSchema = map[string]columnInfo{
	"id":          {"id", "text", false},
	"secret":      {"secret", "text", false},
	"permissions": {"permissions", "jsonb", false},
	"created_at":  {"created_at", "timestamp with time zone", false},
	"revoked_at":  {"revoked_at", "timestamp with time zone", true},
}

var accessLogTableSchema = map[string]columnInfo{
	"id":          {"id", "bigint", false},
	"token_id":    {"token_id", "text", false},
	"remote_addr": {"remote_addr", "text", false},
	"path":        {"path", "text", false},
	"method":      {"method", "text", false},
	"status_code": {"status_code", "integer", false},
	"ts":          {"ts", "bigint", false},
}

var templatesTableSchema = map[string]columnInfo{
	"id":         {"id", "uuid", false},
	"name":       {"name", "text", false},
	"recipient":  {"recipient", "text", false},
	"iban":       {"iban", "text", false},
	"bic":        {"bic", "text", false},
	"amount":     {"amount", "text", false},
	"currency":   {"currency", "text", false},
	"purpose":    {"purpose", "text", false},
	"reference":  {"reference", "text", false},
	"created_at": {"created_at", "timestamp with time zone", false},
	"updated_at": {"updated_at", "timestamp with time zone", false},
	"deleted_at": {"deleted_at", "timestamp with time zone", true},
}

type tableValidation struct {
	tableName      string
	expectedSchema map[string]columnInfo
}

func tableValidations(tables payqr.Tables) []tableValidation {
	return []tableValidation{
		{tables.Tokens, tokensTableSchema},
		{tables.AccessLog, accessLogTableSchema},
		{tables.Templates, templatesTableSchema},
	}
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expectedSchema map[string]columnInfo) error {
	if !payqr.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var missingColumns []string
	var mismatchedColumns []string

	for colName, expected := range expectedSchema {
		actual, exists := actualColumns[colName]
		if !exists {
			missingColumns = append(missingColumns, colName)
			continue
		}

		if actual.dataType != expected.dataType {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}

		if actual.isNullable != expected.isNullable {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(missingColumns) > 0 || len(mismatchedColumns) > 0 {
		var errMsg strings.Builder
		fmt.Fprintf(&errMsg, "table %s schema validation failed:\n", tableName)

		if len(missingColumns) > 0 {
			fmt.Fprintf(&errMsg, "  missing columns: %s\n", strings.Join(missingColumns, ", "))
		}

		if len(mismatchedColumns) > 0 {
			fmt.Fprintf(&errMsg, "  mismatched columns:\n")
			for _, msg := range mismatchedColumns {
				fmt.Fprintf(&errMsg, "    - %s\n", msg)
			}
		}

		return errors.New(errMsg.String())
	}

	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	err := pool.QueryRow(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}
