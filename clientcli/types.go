package clientcli

import (
	"github.com/payqr/payqr"
	"github.com/payqr/payqr/codec"
)

// GenerateOptions configures a generate operation. Exactly one of
// Payment or TemplateID must be set.
type GenerateOptions struct {
	Payment    *codec.Payment
	TemplateID string
	Size       int
	LocalPath  string // empty = derive from recipient, "-" = stdout
}

// GenerateResult represents the result of generating a payment code.
type GenerateResult struct {
	LocalPath string `json:"local_path"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
	Bytes     int64  `json:"bytes"`
}

// ScanOptions configures a scan operation.
type ScanOptions struct {
	LocalPath string // path to the image, "-" = stdin
}

// ScanResult represents the decoded payment.
type ScanResult struct {
	Payment codec.Payment `json:"payment"`
}

// AuditOptions configures an access log query.
type AuditOptions struct {
	TokenID string
	Limit   int
	Cursor  string
	All     bool // auto-paginate through all results
}

// AuditResult contains paginated access records.
type AuditResult struct {
	Records    []payqr.AccessRecord `json:"records"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// serverGenerateRequest mirrors the JSON request accepted by the server.
type serverGenerateRequest struct {
	Payment    *codec.Payment `json:"payment,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Size       int            `json:"size,omitempty"`
}

// serverGenerateResponse mirrors the JSON response from the server.
type serverGenerateResponse struct {
	Image     []byte `json:"image"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

type serverScanRequest struct {
	Image []byte `json:"image"`
}

// serverError mirrors the server's error envelope.
type serverError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
