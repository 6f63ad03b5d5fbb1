package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/codec"
	payqrhttp "github.com/payqr/payqr/http"
)

// memTemplates is a minimal in-memory TemplateRepo.
type memTemplates struct {
	mu   sync.Mutex
	byID map[uuid.UUID]payqr.Template
}

func newMemTemplates() *memTemplates {
	return &memTemplates{byID: map[uuid.UUID]payqr.Template{}}
}

func (m *memTemplates) Get(_ context.Context, id uuid.UUID) (payqr.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return payqr.Template{}, payqr.ErrNotFound
	}
	return t, nil
}

func (m *memTemplates) Create(_ context.Context, t payqr.Template) (payqr.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.byID[t.ID] = t
	return t, nil
}

func (m *memTemplates) Update(_ context.Context, id uuid.UUID, upd payqr.TemplateUpdate) (payqr.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return payqr.Template{}, payqr.ErrNotFound
	}
	upd.Apply(&t)
	t.UpdatedAt = time.Now().UTC()
	m.byID[id] = t
	return t, nil
}

func (m *memTemplates) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return payqr.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTemplates) List(_ context.Context, q payqr.TemplateQuery) (payqr.TemplatePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]payqr.Template, 0, len(m.byID))
	for _, t := range m.byID {
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return payqr.TemplatePage{Items: items}, nil
}

type testServer struct {
	router http.Handler
	audit  *memAudit
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	audit := &memAudit{}
	repos := payqr.Repos{
		Tokens: &memTokens{bySecret: map[string]payqr.Token{
			"gen-secret":   {ID: "gen", Secret: "gen-secret", Permissions: payqr.Permissions{payqr.PermGenerate}},
			"scan-secret":  {ID: "scanner", Secret: "scan-secret", Permissions: payqr.Permissions{payqr.PermScan}},
			"tmpl-secret":  {ID: "tmpl", Secret: "tmpl-secret", Permissions: payqr.Permissions{payqr.PermTemplateRead, payqr.PermTemplateWrite, payqr.PermGenerate}},
			"audit-secret": {ID: "auditor", Secret: "audit-secret", Permissions: payqr.Permissions{payqr.PermAuditRead}},
		}},
		AccessLog: audit,
		Templates: newMemTemplates(),
	}

	h := payqrhttp.NewHandler(&payqrhttp.HandlerConfig{Version: "test"}, repos)
	router, err := h.Router()
	require.NoError(t, err)

	return &testServer{router: router, audit: audit}
}

func (s *testServer) do(t *testing.T, method, path, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Version(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/public/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var v struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "payqr", v.Name)
	assert.Equal(t, "test", v.Version)
}

func TestRouter_GenerateScanRoundTrip(t *testing.T) {
	s := newTestServer(t)

	payment := codec.Payment{
		Recipient: "ACME GmbH",
		IBAN:      "DE89370400440532013000",
		Amount:    "12.50",
		Currency:  "EUR",
	}

	rec := s.do(t, http.MethodPost, "/api/public/generate", "gen-secret",
		payqrhttp.GenerateRequest{Payment: &payment})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var gen payqrhttp.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gen))
	assert.Equal(t, "image/png", gen.MediaType)
	assert.Equal(t, codec.DefaultSize, gen.Size)
	require.NotEmpty(t, gen.Image)

	rec = s.do(t, http.MethodPost, "/api/public/scan", "scan-secret",
		payqrhttp.ScanRequest{Image: gen.Image})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got codec.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment, got)
}

func TestRouter_GenerateRequiresPermission(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/public/generate", "scan-secret", payqrhttp.GenerateRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":401,"message":"Unauthorized request!"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/public/generate", "", payqrhttp.GenerateRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GenerateValidation(t *testing.T) {
	s := newTestServer(t)

	// Neither payment nor template
	rec := s.do(t, http.MethodPost, "/api/public/generate", "gen-secret", payqrhttp.GenerateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invalid payment
	rec = s.do(t, http.MethodPost, "/api/public/generate", "gen-secret",
		payqrhttp.GenerateRequest{Payment: &codec.Payment{Recipient: "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown template id
	rec = s.do(t, http.MethodPost, "/api/public/generate", "gen-secret",
		payqrhttp.GenerateRequest{TemplateID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"message":"not found"}`, rec.Body.String())
}

func TestRouter_ScanRejectsGarbage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/public/scan", "scan-secret",
		payqrhttp.ScanRequest{Image: []byte("not an image")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/public/scan", "scan-secret", payqrhttp.ScanRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_TemplateCRUD(t *testing.T) {
	s := newTestServer(t)

	// Create
	rec := s.do(t, http.MethodPost, "/api/public/templates", "tmpl-secret", payqrhttp.TemplateRequest{
		Name:      "rent",
		Recipient: "ACME GmbH",
		IBAN:      "DE89370400440532013000",
		Amount:    "850.00",
		Currency:  "EUR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created payqr.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEqual(t, uuid.Nil, created.ID)

	// Get
	rec = s.do(t, http.MethodGet, "/api/public/templates/"+created.ID.String(), "tmpl-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Update
	rec = s.do(t, http.MethodPatch, "/api/public/templates/"+created.ID.String(), "tmpl-secret",
		map[string]string{"amount": "875.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated payqr.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "875.00", updated.Amount)
	assert.Equal(t, "rent", updated.Name)

	// Generate from the stored template
	rec = s.do(t, http.MethodPost, "/api/public/generate", "tmpl-secret",
		payqrhttp.GenerateRequest{TemplateID: created.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// List
	rec = s.do(t, http.MethodGet, "/api/public/templates", "tmpl-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page payqr.TemplatePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)

	// Delete
	rec = s.do(t, http.MethodDelete, "/api/public/templates/"+created.ID.String(), "tmpl-secret", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/public/templates/"+created.ID.String(), "tmpl-secret", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_TemplateUpdateValidatedBeforePersist(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/public/templates", "tmpl-secret", payqrhttp.TemplateRequest{
		Name:      "rent",
		Recipient: "ACME GmbH",
		IBAN:      "DE89370400440532013000",
		Amount:    "850.00",
		Currency:  "EUR",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created payqr.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Invalid amount is rejected
	rec = s.do(t, http.MethodPatch, "/api/public/templates/"+created.ID.String(), "tmpl-secret",
		map[string]string{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// And nothing was stored
	rec = s.do(t, http.MethodGet, "/api/public/templates/"+created.ID.String(), "tmpl-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got payqr.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "850.00", got.Amount)
}

func TestRouter_TemplateInvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/public/templates/not-a-uuid", "tmpl-secret", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AuditList(t *testing.T) {
	s := newTestServer(t)

	// Produce some traffic first
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodGet, "/api/public/version", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/public/audit", "audit-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page payqr.AccessPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	// 3 version calls; the audit call itself is logged after the response
	assert.GreaterOrEqual(t, len(page.Records), 3)

	// Reading the audit log is itself permission gated
	rec = s.do(t, http.MethodGet, "/api/public/audit", "gen-secret", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_OpenAPIDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/public/generate")
	assert.Contains(t, paths, "/api/public/scan")
	assert.Contains(t, paths, "/api/public/templates")
	assert.Contains(t, paths, "/api/public/audit")

	// The discovery path itself is outside the audited surface
	assert.Empty(t, s.audit.all())
}

func TestRouter_UnknownPathEnvelope(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/api", "/api/public/nope"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"code":404,"message":"not found"}`, rec.Body.String(), path)
	}

	// None of those produced an access record
	assert.Empty(t, s.audit.all())
}

func TestRouter_RecordsCarryTokenAttribution(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/public/generate", "gen-secret", payqrhttp.GenerateRequest{
		Payment: &codec.Payment{
			Recipient: "ACME GmbH",
			IBAN:      "DE89370400440532013000",
			Amount:    "1.00",
			Currency:  "EUR",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	records := s.audit.all()
	require.Len(t, records, 1)
	assert.Equal(t, "gen", records[0].TokenID)
	assert.Equal(t, "/api/public/generate", records[0].Path)
	assert.Equal(t, http.MethodPost, records[0].Method)
	assert.Equal(t, http.StatusOK, records[0].StatusCode)
}

func TestRouter_CustomSize(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/public/generate", "gen-secret", payqrhttp.GenerateRequest{
		Payment: &codec.Payment{
			Recipient: "ACME GmbH",
			IBAN:      "DE89370400440532013000",
			Amount:    "1.00",
			Currency:  "EUR",
		},
		Size: 128,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var gen payqrhttp.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gen))
	assert.Equal(t, 128, gen.Size)
}

func TestRouter_TemplatesRequireDistinctPermissions(t *testing.T) {
	s := newTestServer(t)

	// audit-secret has neither template:read nor template:write
	rec := s.do(t, http.MethodGet, "/api/public/templates", "audit-secret", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/public/templates", "audit-secret", payqrhttp.TemplateRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/public/templates/"+uuid.NewString(), "audit-secret", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ConcurrentMixedTraffic(t *testing.T) {
	s := newTestServer(t)

	const n = 24
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				rec := s.do(t, http.MethodGet, "/api/public/version", "", nil)
				assert.Equal(t, http.StatusOK, rec.Code)
			case 1:
				rec := s.do(t, http.MethodGet, "/api/public/audit", "audit-secret", nil)
				assert.Equal(t, http.StatusOK, rec.Code)
			default:
				rec := s.do(t, http.MethodGet, "/api/public/audit", "gen-secret", nil)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.audit.all(), n)
}
