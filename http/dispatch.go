package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/payqr/payqr"
)

// HandlerFunc is the invocation function of one endpoint. Expected
// outcomes (including business 4xx responses) are written directly to w;
// a returned error means the handler failed before writing anything and
// is translated to the 500 envelope by the dispatcher.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// EndpointSpec declares one route: its path segment under the public
// prefix, the permission set a token must carry, the invocation function,
// and the machine-readable schemas for the OpenAPI description.
type EndpointSpec struct {
	Path     string
	Requires payqr.Permissions
	Handle   HandlerFunc
	Doc      Doc
}

// Endpoint is the capability a handler declares: exactly one of Get,
// Post, Patch, or Delete. The dispatcher switches on the variant to bind
// the route to its verb.
type Endpoint interface {
	endpoint() (verb string, spec EndpointSpec)
}

// Get declares a handle-GET capability.
type Get struct{ EndpointSpec }

// Post declares a handle-POST capability.
type Post struct{ EndpointSpec }

// Patch declares a handle-PATCH capability.
type Patch struct{ EndpointSpec }

// Delete declares a handle-DELETE capability.
type Delete struct{ EndpointSpec }

func (e Get) endpoint() (string, EndpointSpec)    { return http.MethodGet, e.EndpointSpec }
func (e Post) endpoint() (string, EndpointSpec)   { return http.MethodPost, e.EndpointSpec }
func (e Patch) endpoint() (string, EndpointSpec)  { return http.MethodPatch, e.EndpointSpec }
func (e Delete) endpoint() (string, EndpointSpec) { return http.MethodDelete, e.EndpointSpec }

type routeKey struct {
	verb string
	path string
}

// Dispatcher owns the route table. For each inbound request it authorizes
// the presented secret against the route's required permissions, invokes
// the handler, and appends exactly one access record with the final
// status code after the response is finalized.
type Dispatcher struct {
	access *payqr.AccessManager
	audit  payqr.AccessLogRepo
	routes map[routeKey]EndpointSpec
	order  []routeKey
}

// NewDispatcher creates a Dispatcher with an empty route table.
func NewDispatcher(access *payqr.AccessManager, audit payqr.AccessLogRepo) *Dispatcher {
	return &Dispatcher{
		access: access,
		audit:  audit,
		routes: make(map[routeKey]EndpointSpec),
	}
}

// Register adds endpoints to the route table. Registration is a one-time
// startup step: it fails if two handlers claim the same (verb, path), and
// the process must not start on failure.
func (d *Dispatcher) Register(endpoints ...Endpoint) error {
	for _, ep := range endpoints {
		verb, spec := ep.endpoint()
		if spec.Path == "" || !strings.HasPrefix(spec.Path, "/") {
			return fmt.Errorf("register route: invalid path %q", spec.Path)
		}
		if spec.Handle == nil {
			return fmt.Errorf("register route: %s %s has no handler", verb, spec.Path)
		}

		key := routeKey{verb: verb, path: spec.Path}
		if _, exists := d.routes[key]; exists {
			return fmt.Errorf("register route: duplicate handler for %s %s", verb, spec.Path)
		}
		d.routes[key] = spec
		d.order = append(d.order, key)
	}
	return nil
}

// Mount binds every registered route onto r. The route table is immutable
// after mounting.
func (d *Dispatcher) Mount(r chi.Router) {
	for _, key := range d.order {
		r.Method(key.verb, key.path, d.dispatch(key.verb, d.routes[key]))
	}
}

// dispatch wraps one endpoint with authorization, failure translation,
// and the post-response access log append.
func (d *Dispatcher) dispatch(verb string, spec EndpointSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(middleware.WrapResponseWriter)
		if !ok {
			ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		secret := BearerSecret(r)
		tok, err := d.access.Authorize(r.Context(), secret, spec.Requires)
		if err != nil {
			WriteError(ww, http.StatusUnauthorized, msgUnauthorized)
		} else {
			d.invoke(spec, ww, r)
		}

		status := ww.Status()
		if status == 0 {
			// Handler completed without writing; net/http sends 200.
			status = http.StatusOK
		}

		d.appendRecord(r, tok.ID, status)
	}
}

// invoke runs the handler, translating a returned error or a panic to the
// 500 envelope. Failures never propagate past this boundary.
func (d *Dispatcher) invoke(spec EndpointSpec, w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("handler panic", "path", r.URL.Path, "panic", rec)
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("%s%v", msgInternal, rec))
		}
	}()

	if err := spec.Handle(w, r); err != nil {
		slog.Error("handler failed", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, msgInternal+err.Error())
	}
}

// appendRecord appends one access record after the response is finalized.
// An append failure is logged and swallowed: audit durability must never
// degrade service availability, and appends are not retried.
func (d *Dispatcher) appendRecord(r *http.Request, tokenID string, status int) {
	rec := payqr.AccessRecord{
		TokenID:    tokenID,
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
		Method:     r.Method,
		StatusCode: status,
		Timestamp:  time.Now().UnixMilli(),
	}

	// The record must survive client disconnects that cancel the request
	// context.
	ctx := context.WithoutCancel(r.Context())
	if _, err := d.audit.Append(ctx, rec); err != nil {
		slog.Error("access log append failed", "path", rec.Path, "error", err)
	}
}

// BearerSecret extracts the token secret from the Authorization header.
// Both a raw secret and the "Bearer <secret>" form are accepted; a missing
// header is valid input represented as the empty string.
func BearerSecret(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return header
}
