package payqr

import (
	"context"

	"github.com/google/uuid"
)

// TokenRepo defines the interface for token persistence.
// Implementations must be safe for unbounded concurrent readers; writes
// originate only from the administrative path and must not corrupt
// in-flight lookups.
//
// All methods accept a context for cancellation and timeout control.
type TokenRepo interface {
	// GetBySecret resolves a presented secret to a token by exact match.
	// Returns ErrNotFound when no active token carries the secret.
	GetBySecret(ctx context.Context, secret string) (Token, error)

	// Create stores a new token. The secret must be unique across active
	// tokens; ErrInvalidInput is returned on a duplicate id or secret.
	Create(ctx context.Context, t Token) (Token, error)

	// Revoke deactivates the token with the given id.
	// Returns ErrNotFound if no active token has that id.
	Revoke(ctx context.Context, id string) error

	// List returns all active tokens.
	List(ctx context.Context) ([]Token, error)
}

// AccessLogRepo defines the interface for the append-only access log.
// Appends must be safe for concurrent writers and preserve a total order
// consistent with completion order. The serving path never mutates or
// deletes records.
type AccessLogRepo interface {
	// Append stores one record. The assigned record (with ID) is returned.
	Append(ctx context.Context, rec AccessRecord) (AccessRecord, error)

	// List returns records in append order, optionally filtered by token id,
	// paginated by cursor.
	List(ctx context.Context, q AccessQuery) (AccessPage, error)
}

// TemplateRepo defines the interface for stored payment templates.
type TemplateRepo interface {
	// Get retrieves a template by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (Template, error)

	// Create stores a new template, assigning id and timestamps.
	Create(ctx context.Context, t Template) (Template, error)

	// Update applies non-zero fields of upd to the template with the given
	// id and returns the updated template. Returns ErrNotFound if absent.
	Update(ctx context.Context, id uuid.UUID, upd TemplateUpdate) (Template, error)

	// Delete removes a template by id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns a paginated list of templates ordered by creation time.
	List(ctx context.Context, q TemplateQuery) (TemplatePage, error)
}

// TemplateUpdate holds optional field updates for a template.
// Nil pointers leave the stored value unchanged.
type TemplateUpdate struct {
	Name      *string `json:"name,omitempty"`
	Recipient *string `json:"recipient,omitempty"`
	IBAN      *string `json:"iban,omitempty"`
	BIC       *string `json:"bic,omitempty"`
	Amount    *string `json:"amount,omitempty"`
	Currency  *string `json:"currency,omitempty"`
	Purpose   *string `json:"purpose,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

// Apply merges the set fields of the update into t.
func (u TemplateUpdate) Apply(t *Template) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Recipient != nil {
		t.Recipient = *u.Recipient
	}
	if u.IBAN != nil {
		t.IBAN = *u.IBAN
	}
	if u.BIC != nil {
		t.BIC = *u.BIC
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Currency != nil {
		t.Currency = *u.Currency
	}
	if u.Purpose != nil {
		t.Purpose = *u.Purpose
	}
	if u.Reference != nil {
		t.Reference = *u.Reference
	}
}

// Repos bundles the shared data-access layer. It is constructed once at
// process start and passed explicitly into the access manager, dispatcher,
// and handlers; there is no ambient global.
type Repos struct {
	Tokens    TokenRepo
	AccessLog AccessLogRepo
	Templates TemplateRepo
}
