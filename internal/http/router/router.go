// Package router holds the route table.
//
//	GET    /courses/          list (?id=, ?name=)
//	POST   /courses/          create
//	GET    /courses/{id}/     retrieve
//	PATCH  /courses/{id}/     partial update
//	PUT    /courses/{id}/     full update
//	DELETE /courses/{id}/     delete
//
// and the same set, minus PATCH, under /students/.
package router

import (
	"net/http"

	"github.com/aanand-mishra/courses-api/internal/http/handlers/course"
	"github.com/aanand-mishra/courses-api/internal/http/handlers/student"
	"github.com/aanand-mishra/courses-api/internal/http/middleware"
	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/validation"
)

// New returns the application handler with middleware applied.
func New(storage storage.Storage, validator *validation.Validator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /courses/{$}", course.GetList(storage))
	mux.HandleFunc("POST /courses/{$}", course.New(storage, validator))
	mux.HandleFunc("GET /courses/{id}/{$}", course.GetByID(storage))
	mux.HandleFunc("PATCH /courses/{id}/{$}", course.Patch(storage, validator))
	mux.HandleFunc("PUT /courses/{id}/{$}", course.Update(storage, validator))
	mux.HandleFunc("DELETE /courses/{id}/{$}", course.Delete(storage))

	mux.HandleFunc("GET /students/{$}", student.GetList(storage))
	mux.HandleFunc("POST /students/{$}", student.New(storage, validator))
	mux.HandleFunc("GET /students/{id}/{$}", student.GetByID(storage))
	mux.HandleFunc("PUT /students/{id}/{$}", student.Update(storage, validator))
	mux.HandleFunc("DELETE /students/{id}/{$}", student.Delete(storage))

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
}
