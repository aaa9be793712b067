// Package student contains all HTTP handlers related to the Student resource.
//
// Handlers are built with the closure / factory pattern: the exported
// function receives storage once at startup and returns the
// func(http.ResponseWriter, *http.Request) the router calls per request.
package student

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/aanand-mishra/courses-api/internal/utils/request"
	"github.com/aanand-mishra/courses-api/internal/utils/response"
	"github.com/aanand-mishra/courses-api/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /students/
//
// Request body (JSON):
//
//	{ "name": "Rakesh" }
//
// Success response (201 Created):
//
//	{ "id": 1, "name": "Rakesh" }
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage, validator *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "creating a student")

		var student types.Student
		if err := request.DecodeJSON(r, &student); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.Student(student); err != nil {
			response.WriteError(w, r, err)
			return
		}

		created, err := storage.CreateStudent(r.Context(), student.Name)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetByID handles GET /students/{id}/
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "getting a student", slog.Int64("id", id))

		student, err := storage.GetStudentByID(r.Context(), id)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /students/ and returns [] (not null) when empty.
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "getting all students")

		students, err := storage.GetStudents(r.Context())
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /students/{id}/
// Replaces all fields of an existing student and returns it.
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage, validator *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "updating a student", slog.Int64("id", id))

		var student types.Student
		if err := request.DecodeJSON(r, &student); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.Student(student); err != nil {
			response.WriteError(w, r, err)
			return
		}

		updated, err := storage.UpdateStudentByID(r.Context(), id, student.Name)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /students/{id}/
// Removes the student and drops it from every course it was enrolled in.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "deleting a student", slog.Int64("id", id))

		if err := storage.DeleteStudentByID(r.Context(), id); err != nil {
			response.WriteError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "student deleted", slog.Int64("id", id))
		response.NoContent(w)
	}
}
