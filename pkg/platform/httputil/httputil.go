// Package httputil holds the JSON response envelope shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "intakedesk/pkg/domain-errors"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// MessageResponse is the envelope for non-data responses.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK bool `json:"ok"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOK writes {"ok":true} with the given status.
func WriteOK(w http.ResponseWriter, status int) {
	WriteJSON(w, status, OKResponse{OK: true})
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageResponse{Message: msg})
}

// WriteError translates a domain error into the message envelope. Internal
// failures only expose the error code, never the underlying cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	msg := "Internal server error"
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}

	resp := MessageResponse{Message: msg}
	if status >= http.StatusInternalServerError {
		resp.Error = string(code)
	}
	WriteJSON(w, status, resp)
}

// WriteFailure writes a 5xx envelope with a fixed message, e.g. "Insert failed".
func WriteFailure(w http.ResponseWriter, status int, msg string, err error) {
	WriteJSON(w, status, MessageResponse{Message: msg, Error: string(dErrors.CodeOf(err))})
}
