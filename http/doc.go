// Package http provides the HTTP server surface of payqr: the route
// table, the authorizing dispatcher, and the JSON error envelope.
//
// # Dispatch
//
// Each handler declares exactly one capability (Get, Post, Patch, or
// Delete) with its path, required permission set, invocation function,
// and OpenAPI schemas. The Dispatcher registers the capabilities at
// startup (failing fast on a duplicate verb/path pair) and wraps every
// invocation:
//
//  1. extract the bearer secret from the Authorization header
//  2. authorize it against the route's required permissions
//  3. invoke the handler, translating returned errors and panics to the
//     500 envelope
//  4. append exactly one access record carrying the final status code
//
// Requests that match no route return the 404 envelope and produce no
// access record. An access log append failure is logged and swallowed.
//
// # Error envelope
//
// All failure paths share one JSON shape:
//
//	{"code": 401, "message": "Unauthorized request!"}
//
// Unauthorized and not-found messages are fixed strings; handler failures
// carry the failure's message prefixed with "Internal server error: ".
// Raw failure traces are never exposed; full detail goes to the
// operational log only.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{Version: version}, repos)
//	router, err := handler.Router()
//	if err != nil {
//		// duplicate route registration: do not start
//	}
//	http.ListenAndServe(":5710", router)
package http
