package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/payqr/payqr"
)

type tokenRepo struct {
	db        *sql.DB
	tableName string
}

func (r *tokenRepo) GetBySecret(ctx context.Context, secret string) (payqr.Token, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, secret, permissions, created_at
		FROM %s
		WHERE secret = ? AND revoked_at IS NULL`, r.tableName)

	return scanToken(r.db.QueryRowContext(ctx, query, secret), "get token by secret")
}

func (r *tokenRepo) Create(ctx context.Context, t payqr.Token) (payqr.Token, error) {
	if err := payqr.ValidateToken(t); err != nil {
		return payqr.Token{}, fmt.Errorf("create token: %w: %w", payqr.ErrInvalidInput, err)
	}

	var existing string
	checkQuery := fmt.Sprintf( //nolint:gosec // table name is validated
		`SELECT id FROM %s WHERE (id = ? OR secret = ?) AND revoked_at IS NULL`, r.tableName)
	err := r.db.QueryRowContext(ctx, checkQuery, t.ID, t.Secret).Scan(&existing)
	if err == nil {
		return payqr.Token{}, fmt.Errorf("create token: id or secret already active: %w", payqr.ErrInvalidInput)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return payqr.Token{}, fmt.Errorf("create token: check existing: %w", err)
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	perms, err := json.Marshal(t.Permissions)
	if err != nil {
		return payqr.Token{}, fmt.Errorf("create token: marshal permissions: %w", err)
	}

	insertQuery := fmt.Sprintf( //nolint:gosec // table name is validated
		`INSERT INTO %s (id, secret, permissions, created_at)
		VALUES (?, ?, ?, ?)`, r.tableName)

	_, err = r.db.ExecContext(ctx, insertQuery, t.ID, t.Secret, string(perms),
		t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return payqr.Token{}, fmt.Errorf("create token: %w", err)
	}

	return t, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke token: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("revoke token: %w", payqr.ErrNotFound)
	}

	return nil
}

func (r *tokenRepo) List(ctx context.Context) ([]payqr.Token, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, secret, permissions, created_at
		FROM %s
		WHERE revoked_at IS NULL
		ORDER BY created_at, id`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []payqr.Token
	for rows.Next() {
		t, scanErr := scanToken(rows, "list tokens")
		if scanErr != nil {
			return nil, scanErr
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: rows: %w", err)
	}

	return tokens, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner, opName string) (payqr.Token, error) {
	var t payqr.Token
	var perms, createdAt string

	err := row.Scan(&t.ID, &t.Secret, &perms, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payqr.Token{}, fmt.Errorf("%s: %w", opName, payqr.ErrNotFound)
		}
		return payqr.Token{}, fmt.Errorf("%s: %w", opName, err)
	}

	if err := json.Unmarshal([]byte(perms), &t.Permissions); err != nil {
		return payqr.Token{}, fmt.Errorf("%s: parse permissions: %w", opName, err)
	}

	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return payqr.Token{}, fmt.Errorf("%s: parse created_at: %w", opName, err)
	}

	return t, nil
}

type accessLogRepo struct {
	db        *sql.DB
	tableName string
}

func (r *accessLogRepo) Append(ctx context.Context, rec payqr.AccessRecord) (payqr.AccessRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (token_id, remote_addr, path, method, status_code, ts)
		VALUES (?, ?, ?, ?, ?, ?)`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		rec.TokenID, rec.RemoteAddr, rec.Path, rec.Method, rec.StatusCode, rec.Timestamp)
	if err != nil {
		return payqr.AccessRecord{}, fmt.Errorf("append access record: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return payqr.AccessRecord{}, fmt.Errorf("append access record: last insert id: %w", err)
	}

	return rec, nil
}

func (r *accessLogRepo) List(ctx context.Context, q payqr.AccessQuery) (payqr.AccessPage, error) {
	afterID, err := payqr.DecodeIDCursor(q.Cursor)
	if err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w: %w", payqr.ErrInvalidInput, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, token_id, remote_addr, path, method, status_code, ts
		FROM %s
		WHERE id > ? AND (? = '' OR token_id = ?)
		ORDER BY id
		LIMIT ?`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, afterID, q.TokenID, q.TokenID, limit+1)
	if err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]payqr.AccessRecord, 0, limit)
	for rows.Next() {
		var rec payqr.AccessRecord
		if scanErr := rows.Scan(&rec.ID, &rec.TokenID, &rec.RemoteAddr, &rec.Path,
			&rec.Method, &rec.StatusCode, &rec.Timestamp); scanErr != nil {
			return payqr.AccessPage{}, fmt.Errorf("list access records: scan: %w", scanErr)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: rows: %w", err)
	}

	var nextCursor string
	if len(records) > limit {
		records = records[:limit]
		nextCursor = payqr.EncodeIDCursor(records[limit-1].ID)
	}

	return payqr.AccessPage{Records: records, NextCursor: nextCursor}, nil
}

type templateRepo struct {
	db        *sql.DB
	tableName string
}

const templateColumns = `id, name, recipient, iban, bic, amount, currency, purpose, reference, created_at, updated_at`

func (r *templateRepo) Get(ctx context.Context, id uuid.UUID) (payqr.Template, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id = ? AND deleted_at IS NULL`, templateColumns, r.tableName)

	return scanTemplate(r.db.QueryRowContext(ctx, query, id.String()), "get template")
}

func (r *templateRepo) Create(ctx context.Context, t payqr.Template) (payqr.Template, error) {
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName, templateColumns)

	_, err := r.db.ExecContext(ctx, query,
		t.ID.String(), t.Name, t.Recipient, t.IBAN, t.BIC, t.Amount, t.Currency,
		t.Purpose, t.Reference,
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return payqr.Template{}, fmt.Errorf("create template: %w", err)
	}

	return t, nil
}

func (r *templateRepo) Update(ctx context.Context, id uuid.UUID, upd payqr.TemplateUpdate) (payqr.Template, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return payqr.Template{}, fmt.Errorf("update template: %w", err)
	}

	upd.Apply(&t)
	t.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = ?, recipient = ?, iban = ?, bic = ?, amount = ?, currency = ?,
			purpose = ?, reference = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Recipient, t.IBAN, t.BIC, t.Amount, t.Currency,
		t.Purpose, t.Reference, t.UpdatedAt.Format(time.RFC3339Nano), id.String())
	if err != nil {
		return payqr.Template{}, fmt.Errorf("update template: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return payqr.Template{}, fmt.Errorf("update template: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return payqr.Template{}, fmt.Errorf("update template: %w", payqr.ErrNotFound)
	}

	return t, nil
}

func (r *templateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, now, id.String())
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete template: %w", payqr.ErrNotFound)
	}

	return nil
}

func (r *templateRepo) List(ctx context.Context, q payqr.TemplateQuery) (payqr.TemplatePage, error) {
	cursor, err := payqr.DecodeCursor(q.Cursor)
	if err != nil {
		return payqr.TemplatePage{}, fmt.Errorf("list templates: %w: %w", payqr.ErrInvalidInput, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE deleted_at IS NULL
			ORDER BY created_at, id
			LIMIT ?`, templateColumns, r.tableName)
		args = []any{limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE deleted_at IS NULL AND (created_at, id) > (?, ?)
			ORDER BY created_at, id
			LIMIT ?`, templateColumns, r.tableName)
		args = []any{cursor.CreatedAt.Format(time.RFC3339Nano), cursor.ID, limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return payqr.TemplatePage{}, fmt.Errorf("list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]payqr.Template, 0, limit)
	for rows.Next() {
		t, scanErr := scanTemplate(rows, "list templates")
		if scanErr != nil {
			return payqr.TemplatePage{}, scanErr
		}
		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		return payqr.TemplatePage{}, fmt.Errorf("list templates: rows: %w", err)
	}

	var nextCursor string
	if len(items) > limit {
		items = items[:limit]
		last := items[limit-1]
		nextCursor = payqr.EncodeCursor(last.CreatedAt, last.ID.String())
	}

	return payqr.TemplatePage{Items: items, NextCursor: nextCursor}, nil
}

func scanTemplate(row rowScanner, opName string) (payqr.Template, error) {
	var t payqr.Template
	var idStr, createdAt, updatedAt string

	err := row.Scan(&idStr, &t.Name, &t.Recipient, &t.IBAN, &t.BIC, &t.Amount,
		&t.Currency, &t.Purpose, &t.Reference, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payqr.Template{}, fmt.Errorf("%s: %w", opName, payqr.ErrNotFound)
		}
		return payqr.Template{}, fmt.Errorf("%s: %w", opName, err)
	}

	t.ID, err = uuid.Parse(idStr)
	if err != nil {
		return payqr.Template{}, fmt.Errorf("%s: parse uuid: %w", opName, err)
	}

	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return payqr.Template{}, fmt.Errorf("%s: parse created_at: %w", opName, err)
	}

	t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return payqr.Template{}, fmt.Errorf("%s: parse updated_at: %w", opName, err)
	}

	return t, nil
}

