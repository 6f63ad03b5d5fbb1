package payqr

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Permission is an atomic capability tag required by a route, e.g. "qr:generate".
type Permission string

// Canonical permission atoms understood by the served API.
const (
	PermGenerate      Permission = "qr:generate"
	PermScan          Permission = "qr:scan"
	PermTemplateRead  Permission = "template:read"
	PermTemplateWrite Permission = "template:write"
	PermAuditRead     Permission = "audit:read"
)

// Permissions is a set of permission atoms. Order carries no meaning.
type Permissions []Permission

// Has reports whether the set contains p.
func (ps Permissions) Has(p Permission) bool {
	for _, have := range ps {
		if have == p {
			return true
		}
	}
	return false
}

// HasAll reports whether the set is a superset of required.
// An empty required set is always satisfied.
func (ps Permissions) HasAll(required Permissions) bool {
	for _, want := range required {
		if !ps.Has(want) {
			return false
		}
	}
	return true
}

// Token is a credential bound to a permission set. Clients present the
// opaque Secret in the Authorization header; lookup is by exact secret.
type Token struct {
	ID          string      `json:"id"`
	Secret      string      `json:"-"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NoTokenID is the sentinel recorded when a request could not be
// attributed to any token (anonymous call or failed secret lookup).
const NoTokenID = ""

// AccessRecord describes one completed request's outcome. Records are
// append-only; the serving path never mutates or deletes them.
type AccessRecord struct {
	ID         int64  `json:"id"`
	TokenID    string `json:"token_id,omitempty"`
	RemoteAddr string `json:"remote_addr"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	// Timestamp is wall-clock milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// AccessQuery filters and paginates access log reads.
type AccessQuery struct {
	TokenID string
	Limit   int
	Cursor  string
}

// AccessPage is one page of access records in append order.
type AccessPage struct {
	Records    []AccessRecord `json:"records"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Template is a stored payment definition from which codes are generated.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Recipient string    `json:"recipient"`
	IBAN      string    `json:"iban"`
	BIC       string    `json:"bic,omitempty"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Purpose   string    `json:"purpose,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemplateQuery paginates template listings.
type TemplateQuery struct {
	Limit  int
	Cursor string
}

// TemplatePage is one page of templates.
type TemplatePage struct {
	Items      []Template `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Tables holds configurable table names for the metadata backends.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Tokens    string `mapstructure:"tokens"`
	AccessLog string `mapstructure:"access_log"`
	Templates string `mapstructure:"templates"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	for _, tn := range []struct {
		label string
		name  string
	}{
		{"tokens", t.Tokens},
		{"access log", t.AccessLog},
		{"templates", t.Templates},
	} {
		if tn.name == "" {
			return fmt.Errorf("validate tables: %s table name cannot be empty", tn.label)
		}
		if !IsValidTableName(tn.name) {
			return fmt.Errorf("validate tables: invalid %s table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", tn.label, tn.name)
		}
	}
	return nil
}

// ValidateToken checks a token definition before storage.
func ValidateToken(t Token) error {
	if t.ID == "" {
		return errors.New("validate token: id cannot be empty")
	}
	if t.Secret == "" {
		return errors.New("validate token: secret cannot be empty")
	}
	for _, p := range t.Permissions {
		if p == "" {
			return errors.New("validate token: empty permission atom")
		}
	}
	return nil
}
