package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/validation"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := WriteJSON(rec, http.StatusCreated, map[string]int{"id": 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if body := rec.Body.String(); body != "{\"id\":1}\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestGeneralError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusNotFound, GeneralError(errors.New("no course found")))

	var got Response
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusError || got.Error != "no course found" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestValidationError(t *testing.T) {
	verr := &validation.Error{Fields: map[string][]string{
		"students": {"students can't be more than 20"},
	}}

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, ValidationError(verr))

	if body := rec.Body.String(); body != "{\"students\":[\"students can't be more than 20\"]}\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &validation.Error{Fields: map[string][]string{"name": {"required"}}}, http.StatusBadRequest},
		{"unknown student", fmt.Errorf("student 9: %w", storage.ErrUnknownStudent), http.StatusBadRequest},
		{"not found", fmt.Errorf("no course found with id 1: %w", storage.ErrNotFound), http.StatusNotFound},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/courses/", nil), tc.err)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
