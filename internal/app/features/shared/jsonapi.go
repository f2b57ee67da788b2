// Package shared holds helpers common to the JSON feature handlers.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error body: { "error": "<message>" }.
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// DecodeBody reads a JSON request body into dst. On failure it writes a 400
// and returns false; callers just return.
func DecodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ServerError logs err and writes a generic 500. Internal details never
// reach the client.
func ServerError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	log.Error(op, zap.Error(err))
	Error(w, http.StatusInternalServerError, "internal error")
}

// MapError writes the status whose sentinel matches err, or falls back to
// ServerError. Pairs are (sentinel, status, message).
func MapError(w http.ResponseWriter, log *zap.Logger, op string, err error, pairs ...ErrStatus) {
	for _, p := range pairs {
		if errors.Is(err, p.Err) {
			Error(w, p.Status, p.Message)
			return
		}
	}
	ServerError(w, log, op, err)
}

// ErrStatus binds a sentinel error to an HTTP status and client message.
type ErrStatus struct {
	Err     error
	Status  int
	Message string
}
