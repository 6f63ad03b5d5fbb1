package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/codec"
)

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Version string
	CORS    CORSConfig
	Codec   codec.Options
}

// Handler provides the HTTP handlers for the payment code operations and
// wires them into the dispatcher's route table.
type Handler struct {
	config HandlerConfig
	repos  payqr.Repos
	access *payqr.AccessManager
}

// NewHandler creates a new Handler over the shared data-access layer.
func NewHandler(config *HandlerConfig, repos payqr.Repos) *Handler {
	return &Handler{
		config: *config,
		repos:  repos,
		access: payqr.NewAccessManager(repos.Tokens),
	}
}

// Router builds the HTTP routing tree: operational request logging, CORS,
// the OpenAPI description at its fixed discovery path, and the dispatched
// API under /api/public. It fails when two handlers claim the same
// (verb, path) so a conflicting route table never serves traffic.
func (h *Handler) Router() (http.Handler, error) {
	d := NewDispatcher(h.access, h.repos.AccessLog)
	if err := d.Register(h.endpoints()...); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(NotFoundHandler)

	doc := BuildOpenAPI(h.config.Version, d)
	r.Get("/api/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusOK, doc)
	})

	r.Route("/api/public", func(r chi.Router) {
		if sub, ok := r.(*chi.Mux); ok {
			sub.NotFound(NotFoundHandler)
			sub.MethodNotAllowed(NotFoundHandler)
		}
		d.Mount(r)
	})

	return r, nil
}

// endpoints declares the route table: one capability per handler, each
// with its required permission set and schemas for the OpenAPI document.
func (h *Handler) endpoints() []Endpoint {
	return []Endpoint{
		Post{EndpointSpec{
			Path:     "/generate",
			Requires: payqr.Permissions{payqr.PermGenerate},
			Handle:   h.handleGenerate,
			Doc: Doc{
				Summary: "Generate a payment code image",
				Input:   GenerateRequest{},
				Output:  GenerateResponse{},
			},
		}},
		Post{EndpointSpec{
			Path:     "/scan",
			Requires: payqr.Permissions{payqr.PermScan},
			Handle:   h.handleScan,
			Doc: Doc{
				Summary: "Scan a payment code image",
				Input:   ScanRequest{},
				Output:  codec.Payment{},
			},
		}},
		Get{EndpointSpec{
			Path:   "/version",
			Handle: h.handleVersion,
			Doc: Doc{
				Summary: "Service name and version",
				Output:  VersionResponse{},
			},
		}},
		Get{EndpointSpec{
			Path:     "/templates",
			Requires: payqr.Permissions{payqr.PermTemplateRead},
			Handle:   h.handleTemplateList,
			Doc: Doc{
				Summary: "List payment templates",
				Output:  payqr.TemplatePage{},
			},
		}},
		Post{EndpointSpec{
			Path:     "/templates",
			Requires: payqr.Permissions{payqr.PermTemplateWrite},
			Handle:   h.handleTemplateCreate,
			Doc: Doc{
				Summary: "Create a payment template",
				Input:   TemplateRequest{},
				Output:  payqr.Template{},
			},
		}},
		Get{EndpointSpec{
			Path:     "/templates/{id}",
			Requires: payqr.Permissions{payqr.PermTemplateRead},
			Handle:   h.handleTemplateGet,
			Doc: Doc{
				Summary: "Get a payment template",
				Output:  payqr.Template{},
			},
		}},
		Patch{EndpointSpec{
			Path:     "/templates/{id}",
			Requires: payqr.Permissions{payqr.PermTemplateWrite},
			Handle:   h.handleTemplateUpdate,
			Doc: Doc{
				Summary: "Update a payment template",
				Input:   payqr.TemplateUpdate{},
				Output:  payqr.Template{},
			},
		}},
		Delete{EndpointSpec{
			Path:     "/templates/{id}",
			Requires: payqr.Permissions{payqr.PermTemplateWrite},
			Handle:   h.handleTemplateDelete,
			Doc: Doc{
				Summary: "Delete a payment template",
			},
		}},
		Get{EndpointSpec{
			Path:     "/audit",
			Requires: payqr.Permissions{payqr.PermAuditRead},
			Handle:   h.handleAuditList,
			Doc: Doc{
				Summary: "List access records",
				Output:  payqr.AccessPage{},
			},
		}},
	}
}

// GenerateRequest is the input of POST /api/public/generate. Either an
// inline payment or a stored template id must be given.
type GenerateRequest struct {
	Payment    *codec.Payment `json:"payment,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Size       int            `json:"size,omitempty"`
}

// GenerateResponse carries the rendered code as base64-encoded PNG bytes.
type GenerateResponse struct {
	Image     []byte `json:"image"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

// ScanRequest is the input of POST /api/public/scan.
type ScanRequest struct {
	Image []byte `json:"image"`
}

type VersionResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// TemplateRequest is the input of POST /api/public/templates.
type TemplateRequest struct {
	Name      string `json:"name"`
	Recipient string `json:"recipient"`
	IBAN      string `json:"iban"`
	BIC       string `json:"bic,omitempty"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Purpose   string `json:"purpose,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) error {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}

	var payment codec.Payment
	switch {
	case req.TemplateID != "":
		id, err := uuid.Parse(req.TemplateID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid template id")
			return nil
		}
		tpl, err := h.repos.Templates.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, payqr.ErrNotFound) {
				WriteError(w, http.StatusNotFound, msgNotFound)
				return nil
			}
			return fmt.Errorf("load template: %w", err)
		}
		payment = templatePayment(tpl)
	case req.Payment != nil:
		payment = *req.Payment
	default:
		WriteError(w, http.StatusBadRequest, "payment or template_id is required")
		return nil
	}

	opts := h.config.Codec
	if req.Size > 0 {
		opts.Size = req.Size
	}
	if opts.Size <= 0 {
		opts.Size = codec.DefaultSize
	}

	png, err := codec.Generate(payment, opts)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid payment: %v", err))
		return nil
	}

	return WriteJSON(w, http.StatusOK, GenerateResponse{
		Image:     png,
		MediaType: "image/png",
		Size:      opts.Size,
	})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) error {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}
	if len(req.Image) == 0 {
		WriteError(w, http.StatusBadRequest, "image is required")
		return nil
	}

	payment, err := codec.Scan(req.Image)
	if err != nil {
		if errors.Is(err, codec.ErrMalformed) {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("unreadable payment code: %v", err))
			return nil
		}
		return fmt.Errorf("scan: %w", err)
	}

	return WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) handleVersion(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, http.StatusOK, VersionResponse{
		Name:    "payqr",
		Version: h.config.Version,
	})
}

func (h *Handler) handleTemplateList(w http.ResponseWriter, r *http.Request) error {
	q := payqr.TemplateQuery{
		Limit:  parseLimit(r.URL.Query().Get("limit")),
		Cursor: r.URL.Query().Get("cursor"),
	}

	page, err := h.repos.Templates.List(r.Context(), q)
	if err != nil {
		if errors.Is(err, payqr.ErrInvalidInput) {
			WriteError(w, http.StatusBadRequest, "invalid cursor")
			return nil
		}
		return fmt.Errorf("list templates: %w", err)
	}

	return WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleTemplateCreate(w http.ResponseWriter, r *http.Request) error {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return nil
	}

	tpl := payqr.Template{
		Name:      req.Name,
		Recipient: req.Recipient,
		IBAN:      req.IBAN,
		BIC:       req.BIC,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Purpose:   req.Purpose,
		Reference: req.Reference,
	}

	if err := templatePayment(tpl).Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid payment fields: %v", err))
		return nil
	}

	created, err := h.repos.Templates.Create(r.Context(), tpl)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	return WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleTemplateGet(w http.ResponseWriter, r *http.Request) error {
	id, ok := templateID(w, r)
	if !ok {
		return nil
	}

	tpl, err := h.repos.Templates.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, payqr.ErrNotFound) {
			WriteError(w, http.StatusNotFound, msgNotFound)
			return nil
		}
		return fmt.Errorf("get template: %w", err)
	}

	return WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) error {
	id, ok := templateID(w, r)
	if !ok {
		return nil
	}

	var upd payqr.TemplateUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}

	// Validate the merged result before anything is persisted.
	current, err := h.repos.Templates.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, payqr.ErrNotFound) {
			WriteError(w, http.StatusNotFound, msgNotFound)
			return nil
		}
		return fmt.Errorf("update template: %w", err)
	}
	upd.Apply(&current)
	if err := templatePayment(current).Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid payment fields: %v", err))
		return nil
	}

	tpl, err := h.repos.Templates.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, payqr.ErrNotFound) {
			WriteError(w, http.StatusNotFound, msgNotFound)
			return nil
		}
		return fmt.Errorf("update template: %w", err)
	}

	return WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) handleTemplateDelete(w http.ResponseWriter, r *http.Request) error {
	id, ok := templateID(w, r)
	if !ok {
		return nil
	}

	if err := h.repos.Templates.Delete(r.Context(), id); err != nil {
		if errors.Is(err, payqr.ErrNotFound) {
			WriteError(w, http.StatusNotFound, msgNotFound)
			return nil
		}
		return fmt.Errorf("delete template: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) error {
	q := payqr.AccessQuery{
		TokenID: r.URL.Query().Get("token_id"),
		Limit:   parseLimit(r.URL.Query().Get("limit")),
		Cursor:  r.URL.Query().Get("cursor"),
	}

	page, err := h.repos.AccessLog.List(r.Context(), q)
	if err != nil {
		if errors.Is(err, payqr.ErrInvalidInput) {
			WriteError(w, http.StatusBadRequest, "invalid cursor")
			return nil
		}
		return fmt.Errorf("list access records: %w", err)
	}

	return WriteJSON(w, http.StatusOK, page)
}

// templateID parses the {id} URL parameter, writing a 400 envelope on a
// malformed id.
func templateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid template id")
		return uuid.Nil, false
	}
	return id, true
}

func templatePayment(t payqr.Template) codec.Payment {
	return codec.Payment{
		Recipient: t.Recipient,
		IBAN:      t.IBAN,
		BIC:       t.BIC,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Purpose:   t.Purpose,
		Reference: t.Reference,
	}
}

func parseLimit(s string) int {
	limit := 100
	if s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = max(1, min(1000, parsed))
		}
	}
	return limit
}
