// Package httpx is the small JSON request/response helper cmd/enginectl
// uses, adapted unchanged in spirit from the teacher's pkg/httpx.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// NewRequestID returns a fresh request identifier for response envelopes.
func NewRequestID() string { return "req_" + uuid.NewString() }

// WriteJSON writes v as a status-coded JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a status-coded JSON error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}
