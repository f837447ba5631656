// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "pitchroom/pkg/domain-errors"
)

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes v with the standard headers. Encoding failures are
// swallowed; by that point the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a structured HTTP response.
// Errors that never passed through pkg/domain-errors surface as a generic
// internal error so raw failure text does not leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	env := ErrorEnvelope{Error: string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) {
		env.Message = de.Message
		env.Details = de.Details
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), env)
}
