package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payqr/payqr"
)

type tokenRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *tokenRepo) GetBySecret(ctx context.Context, secret string) (payqr.Token, error) {
	query := fmt.Sprintf(`
		SELECT id, secret, permissions, created_at
		FROM %s
		WHERE secret = $1 AND revoked_at IS NULL
	`, r.tableName)

	var t payqr.Token
	var perms []byte
	err := r.pool.QueryRow(ctx, query, secret).Scan(&t.ID, &t.Secret, &perms, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payqr.Token{}, fmt.Errorf("get token by secret: %w", payqr.ErrNotFound)
		}
		return payqr.Token{}, fmt.Errorf("get token by secret: %w", err)
	}

	if err := json.Unmarshal(perms, &t.Permissions); err != nil {
		return payqr.Token{}, fmt.Errorf("get token by secret: parse permissions: %w", err)
	}

	return t, nil
}

func (r *tokenRepo) Create(ctx context.Context, t payqr.Token) (payqr.Token, error) {
	if err := payqr.ValidateToken(t); err != nil {
		return payqr.Token{}, fmt.Errorf("create token: %w: %w", payqr.ErrInvalidInput, err)
	}

	checkQuery := fmt.Sprintf(`
		SELECT id FROM %s WHERE (id = $1 OR secret = $2) AND revoked_at IS NULL
	`, r.tableName)

	var existing string
	err := r.pool.QueryRow(ctx, checkQuery, t.ID, t.Secret).Scan(&existing)
	if err == nil {
		return payqr.Token{}, fmt.Errorf("create token: id or secret already active: %w", payqr.ErrInvalidInput)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payqr.Token{}, fmt.Errorf("create token: check existing: %w", err)
	}

	perms, err := json.Marshal(t.Permissions)
	if err != nil {
		return payqr.Token{}, fmt.Errorf("create token: marshal permissions: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, secret, permissions)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, r.tableName)

	err = r.pool.QueryRow(ctx, insertQuery, t.ID, t.Secret, perms).Scan(&t.CreatedAt)
	if err != nil {
		return payqr.Token{}, fmt.Errorf("create token: %w", err)
	}

	return t, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("revoke token: %w", payqr.ErrNotFound)
	}

	return nil
}

func (r *tokenRepo) List(ctx context.Context) ([]payqr.Token, error) {
	query := fmt.Sprintf(`
		SELECT id, secret, permissions, created_at
		FROM %s
		WHERE revoked_at IS NULL
		ORDER BY created_at, id
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []payqr.Token
	for rows.Next() {
		var t payqr.Token
		var perms []byte
		if err := rows.Scan(&t.ID, &t.Secret, &perms, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list tokens: scan: %w", err)
		}
		if err := json.Unmarshal(perms, &t.Permissions); err != nil {
			return nil, fmt.Errorf("list tokens: parse permissions: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: rows: %w", err)
	}

	return tokens, nil
}

type accessLogRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *accessLogRepo) Append(ctx context.Context, rec payqr.AccessRecord) (payqr.AccessRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (token_id, remote_addr, path, method, status_code, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query,
		rec.TokenID, rec.RemoteAddr, rec.Path, rec.Method, rec.StatusCode, rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return payqr.AccessRecord{}, fmt.Errorf("append access record: %w", err)
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

	query := fmt.Sprintf(`
		SELECT id, token_id, remote_addr, path, method, status_code, ts
		FROM %s
		WHERE id > $1 AND ($2 = '' OR token_id = $2)
		ORDER BY id
		LIMIT $3
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, afterID, q.TokenID, limit+1)
	if err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w", err)
	}
	defer rows.Close()

	records := make([]payqr.AccessRecord, 0, limit)
	for rows.Next() {
		var rec payqr.AccessRecord
		if err := rows.Scan(&rec.ID, &rec.TokenID, &rec.RemoteAddr, &rec.Path,
			&rec.Method, &rec.StatusCode, &rec.Timestamp); err != nil {
			return payqr.AccessPage{}, fmt.Errorf("list access records: scan: %w", err)
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
	pool      *pgxpool.Pool
	tableName string
}

const templateColumns = `id, name, recipient, iban, bic, amount, currency, purpose, reference, created_at, updated_at`

func (r *templateRepo) Get(ctx context.Context, id uuid.UUID) (payqr.Template, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, templateColumns, r.tableName)

	var t payqr.Template
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Recipient, &t.IBAN, &t.BIC, &t.Amount, &t.Currency,
		&t.Purpose, &t.Reference, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payqr.Template{}, fmt.Errorf("get template: %w", payqr.ErrNotFound)
		}
		return payqr.Template{}, fmt.Errorf("get template: %w", err)
	}

	return t, nil
}

func (r *templateRepo) Create(ctx context.Context, t payqr.Template) (payqr.Template, error) {
	t.ID = uuid.New()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, recipient, iban, bic, amount, currency, purpose, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query,
		t.ID, t.Name, t.Recipient, t.IBAN, t.BIC, t.Amount, t.Currency, t.Purpose, t.Reference,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
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

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, recipient = $2, iban = $3, bic = $4, amount = $5,
			currency = $6, purpose = $7, reference = $8, updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL
		RETURNING updated_at
	`, r.tableName)

	err = r.pool.QueryRow(ctx, query,
		t.Name, t.Recipient, t.IBAN, t.BIC, t.Amount, t.Currency,
		t.Purpose, t.Reference, id,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payqr.Template{}, fmt.Errorf("update template: %w", payqr.ErrNotFound)
		}
		return payqr.Template{}, fmt.Errorf("update template: %w", err)
	}

	return t, nil
}

func (r *templateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	if result.RowsAffected() == 0 {
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
			LIMIT $1
		`, templateColumns, r.tableName)
		args = []any{limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE deleted_at IS NULL AND (created_at, id) > ($1, $2)
			ORDER BY created_at, id
			LIMIT $3
		`, templateColumns, r.tableName)
		cursorID, parseErr := uuid.Parse(cursor.ID)
		if parseErr != nil {
			return payqr.TemplatePage{}, fmt.Errorf("list templates: %w: %w", payqr.ErrInvalidInput, parseErr)
		}
		args = []any{cursor.CreatedAt, cursorID, limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return payqr.TemplatePage{}, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]payqr.Template, 0, limit)
	for rows.Next() {
		var t payqr.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Recipient, &t.IBAN, &t.BIC, &t.Amount,
			&t.Currency, &t.Purpose, &t.Reference, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return payqr.TemplatePage{}, fmt.Errorf("list templates: scan: %w", err)
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

