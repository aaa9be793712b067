// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Two error shapes exist. Rejected input is answered with a field map:
//
//	{ "students": ["students can't be more than 20"] }
//
// Everything else (not found, malformed body, storage failures) uses the
// envelope:
//
//	{ "status": "error", "error": "no course found with id 7: not found" }
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/validation"
)

// Response is the standard envelope returned for non-validation errors.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given status code.
// Headers must be set before WriteHeader, and the body after it.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// NoContent writes a bodyless 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// GeneralError wraps any Go error into the standard envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError returns the field map of a rejected draft.
func ValidationError(err *validation.Error) map[string][]string {
	return err.Fields
}

// FieldError builds a single-field map for errors detected outside the
// validator, such as a reference to a missing student.
func FieldError(field, msg string) map[string][]string {
	return map[string][]string{field: {msg}}
}

// WriteError maps err onto a status code and body:
//
//	*validation.Error          → 400, field map
//	storage.ErrUnknownStudent  → 400, students field
//	storage.ErrNotFound        → 404, envelope
//	anything else              → 500, envelope (logged)
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, ValidationError(verr))
	case errors.Is(err, storage.ErrUnknownStudent):
		WriteJSON(w, http.StatusBadRequest, FieldError("students", err.Error()))
	case errors.Is(err, storage.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, GeneralError(err))
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		WriteJSON(w, http.StatusInternalServerError, GeneralError(err))
	}
}
