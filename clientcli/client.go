package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/codec"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs operations against a payqr server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()

	// Normalize endpoint URL (remove trailing slash)
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")

	c := &Client{
		config: &Config{
			Endpoint: endpoint,
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Generate asks the server to render a payment code and writes the PNG
// to opts.LocalPath. LocalPath "-" streams the image to stdout.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if opts.Payment == nil && opts.TemplateID == "" {
		return nil, fmt.Errorf("generate: %w", ErrEmptyInput)
	}

	reqBody := serverGenerateRequest{
		Payment:    opts.Payment,
		TemplateID: opts.TemplateID,
		Size:       opts.Size,
	}

	var resp serverGenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/public/generate", reqBody, &resp); err != nil {
		return nil, err
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = deriveFileName(opts)
	}

	if localPath == "-" {
		n, err := os.Stdout.Write(resp.Image)
		if err != nil {
			return nil, fmt.Errorf("write image: %w", err)
		}
		return &GenerateResult{
			LocalPath: "-",
			MediaType: resp.MediaType,
			Size:      resp.Size,
			Bytes:     int64(n),
		}, nil
	}

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	if err := os.WriteFile(localPath, resp.Image, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &GenerateResult{
		LocalPath: localPath,
		MediaType: resp.MediaType,
		Size:      resp.Size,
		Bytes:     int64(len(resp.Image)),
	}, nil
}

// Scan reads an image file and asks the server to decode the payment.
// LocalPath "-" reads the image from stdin.
func (c *Client) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("scan: %w", ErrEmptyPath)
	}

	var image []byte
	var err error
	if opts.LocalPath == "-" {
		image, err = io.ReadAll(os.Stdin)
	} else {
		image, err = os.ReadFile(filepath.Clean(opts.LocalPath))
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	var payment codec.Payment
	if err := c.doJSON(ctx, http.MethodPost, "/api/public/scan", serverScanRequest{Image: image}, &payment); err != nil {
		return nil, err
	}

	return &ScanResult{Payment: payment}, nil
}

// Audit fetches access records from the server.
// If opts.All is true, paginates through all results.
func (c *Client) Audit(ctx context.Context, opts AuditOptions) (*AuditResult, error) {
	if opts.All {
		return c.auditAll(ctx, opts)
	}
	return c.auditPage(ctx, opts)
}

// auditPage fetches a single page of records.
func (c *Client) auditPage(ctx context.Context, opts AuditOptions) (*AuditResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if opts.TokenID != "" {
		q.Set("token_id", opts.TokenID)
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	var page payqr.AccessPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/public/audit?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}

	return &AuditResult{Records: page.Records, NextCursor: page.NextCursor}, nil
}

// auditAll paginates through every page of records.
func (c *Client) auditAll(ctx context.Context, opts AuditOptions) (*AuditResult, error) {
	var all AuditResult
	cursor := opts.Cursor

	for {
		page, err := c.auditPage(ctx, AuditOptions{
			TokenID: opts.TokenID,
			Limit:   opts.Limit,
			Cursor:  cursor,
		})
		if err != nil {
			return nil, err
		}

		all.Records = append(all.Records, page.Records...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return &all, nil
}

// Version fetches the server name and version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/public/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// doJSON sends a JSON request with the bearer token and decodes the
// JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseServerError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// parseServerError decodes the server's error envelope; falls back to
// the raw body when the envelope does not parse.
func parseServerError(status int, body []byte) error {
	var se serverError
	if err := json.Unmarshal(body, &se); err == nil && se.Message != "" {
		return fmt.Errorf("server error (%d): %s", status, se.Message)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("server error (%d): %s", status, msg)
}

// deriveFileName builds a default output file name for a generated code.
func deriveFileName(opts GenerateOptions) string {
	if opts.TemplateID != "" {
		return opts.TemplateID + ".png"
	}
	name := strings.ToLower(opts.Payment.Recipient)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
	name = strings.Trim(name, "-")
	if name == "" {
		name = "payment"
	}
	return name + ".png"
}
