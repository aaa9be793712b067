// Package storage defines the Storage interface, the contract any database
// backend must satisfy to serve the HTTP handlers.
//
// Handlers depend only on this interface. Backends live in sub-packages
// (sqlite, postgres) and are picked in main from the configured driver.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/courses-api/internal/types"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownStudent is returned when a course references a student id
	// that does not exist.
	ErrUnknownStudent = errors.New("unknown student")
)

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new student and returns it with its id.
	CreateStudent(ctx context.Context, name string) (types.Student, error)

	// GetStudentByID returns ErrNotFound if there is no such student.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudents returns every student ordered by id. Never nil.
	GetStudents(ctx context.Context) ([]types.Student, error)

	UpdateStudentByID(ctx context.Context, id int64, name string) (types.Student, error)

	// DeleteStudentByID removes the student and its course memberships.
	DeleteStudentByID(ctx context.Context, id int64) error

	// CreateCourse inserts the course and its student set in one
	// transaction. An unknown student id yields ErrUnknownStudent and
	// nothing is written.
	CreateCourse(ctx context.Context, draft types.CourseDraft) (types.Course, error)

	GetCourseByID(ctx context.Context, id int64) (types.Course, error)

	// GetCourses returns the courses matching filter, ordered by id.
	GetCourses(ctx context.Context, filter types.CourseFilter) ([]types.Course, error)

	// UpdateCourseByID replaces the name and the student set of a course
	// in one transaction.
	UpdateCourseByID(ctx context.Context, id int64, draft types.CourseDraft) (types.Course, error)

	// DeleteCourseByID removes the course and its memberships. Students
	// are kept.
	DeleteCourseByID(ctx context.Context, id int64) error

	Close() error
}
