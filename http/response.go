package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error envelope messages with wire-format compatibility guarantees.
const (
	msgNotFound     = "not found"
	msgUnauthorized = "Unauthorized request!"
	msgInternal     = "Internal server error: "
)

// ErrorResponse is the uniform JSON error envelope. The exact schema is
// part of the API contract for the 401/404/500 paths.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a JSON error envelope with the given status code.
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// NotFoundHandler writes the 404 envelope. It backs both the router's
// no-route and wrong-method fallbacks; unmatched requests produce no
// access record.
func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, msgNotFound)
}
