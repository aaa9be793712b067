// Package course contains the HTTP handlers for the Course resource.
//
// Each exported function is a factory: it receives its dependencies once,
// at route registration, and returns the http.HandlerFunc run on every
// request.
//
//	router.HandleFunc("POST /courses/{$}", course.New(storage, validator))
//
// Create and update requests are reduced to a types.CourseDraft and passed
// through the validator before storage is touched, so a rejected request
// never writes anything.
package course

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/aanand-mishra/courses-api/internal/utils/request"
	"github.com/aanand-mishra/courses-api/internal/utils/response"
	"github.com/aanand-mishra/courses-api/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /courses/
//
// Optional exact-match filters, combinable:
//
//	?id=7
//	?name=python-developer
//
// Returns [] when nothing matches.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "listing courses", slog.String("query", r.URL.RawQuery))

		filter, err := parseFilter(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.FieldError("id", err.Error()))
			return
		}

		courses, err := storage.GetCourses(r.Context(), filter)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, courses)
	}
}

func parseFilter(r *http.Request) (types.CourseFilter, error) {
	var filter types.CourseFilter
	query := r.URL.Query()

	if query.Has("id") {
		id, err := strconv.ParseInt(query.Get("id"), 10, 64)
		if err != nil {
			return filter, request.ErrInvalidID
		}
		filter.ID = &id
	}
	if query.Has("name") {
		name := query.Get("name")
		filter.Name = &name
	}

	return filter, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /courses/{id}/
//
//	200 { "id": 1, "name": "python-developer", "students": [3, 4] }
//	404 when there is no such course
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "getting a course", slog.Int64("id", id))

		course, err := storage.GetCourseByID(r.Context(), id)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, course)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /courses/
//
// Request body:
//
//	{ "name": "python-developer", "students": [1, 2] }
//
// students may be omitted. Responds 201 with the created course, or 400
// with a field map when the draft is rejected.
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage, validator *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "creating a course")

		var draft types.CourseDraft
		if err := request.DecodeJSON(r, &draft); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.Check(draft); err != nil {
			slog.InfoContext(r.Context(), "course rejected", slog.String("reason", err.Error()))
			response.WriteError(w, r, err)
			return
		}

		course, err := storage.CreateCourse(r.Context(), draft)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "course created",
			slog.Int64("id", course.ID),
			slog.Int("students", len(course.Students)))
		response.WriteJSON(w, http.StatusCreated, course)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Patch handles PATCH /courses/{id}/
//
// Only the fields present in the body change. The merged course is
// validated as a whole, so adding students to a course that is already
// near the limit is rejected just like an oversized create.
// ─────────────────────────────────────────────────────────────────────────────
func Patch(storage storage.Storage, validator *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "patching a course", slog.Int64("id", id))

		var patch types.CoursePatch
		if err := request.DecodeJSON(r, &patch); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		current, err := storage.GetCourseByID(r.Context(), id)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		save(w, r, storage, validator, id, patch.Apply(current))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /courses/{id}/
//
// Replaces the course. An omitted students list empties the course.
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage, validator *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "updating a course", slog.Int64("id", id))

		var draft types.CourseDraft
		if err := request.DecodeJSON(r, &draft); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if _, err := storage.GetCourseByID(r.Context(), id); err != nil {
			response.WriteError(w, r, err)
			return
		}

		save(w, r, storage, validator, id, draft)
	}
}

func save(w http.ResponseWriter, r *http.Request, storage storage.Storage, validator *validation.Validator, id int64, draft types.CourseDraft) {
	if err := validator.Check(draft); err != nil {
		slog.InfoContext(r.Context(), "course update rejected",
			slog.Int64("id", id),
			slog.String("reason", err.Error()))
		response.WriteError(w, r, err)
		return
	}

	course, err := storage.UpdateCourseByID(r.Context(), id, draft)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "course updated", slog.Int64("id", id))
	response.WriteJSON(w, http.StatusOK, course)
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /courses/{id}/
//
// Removes the course and its enrolments; the students stay. 204 on
// success, 404 when there is no such course.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.InfoContext(r.Context(), "deleting a course", slog.Int64("id", id))

		if err := storage.DeleteCourseByID(r.Context(), id); err != nil {
			response.WriteError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "course deleted", slog.Int64("id", id))
		response.NoContent(w)
	}
}
