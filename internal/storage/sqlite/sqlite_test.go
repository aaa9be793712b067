package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aanand-mishra/courses-api/internal/config"
	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
)

func newTestStorage(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(&config.Config{StoragePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createStudents(t *testing.T, s *SQLite, n int) []int64 {
	t.Helper()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		student, err := s.CreateStudent(context.Background(), "student")
		if err != nil {
			t.Fatalf("CreateStudent: %v", err)
		}
		ids = append(ids, student.ID)
	}
	return ids
}

func TestCourseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	students := createStudents(t, s, 3)

	created, err := s.CreateCourse(ctx, types.CourseDraft{Name: "python-developer", Students: students[:2]})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if created.Name != "python-developer" || !reflect.DeepEqual(created.Students, students[:2]) {
		t.Fatalf("unexpected course: %+v", created)
	}

	updated, err := s.UpdateCourseByID(ctx, created.ID, types.CourseDraft{Name: "backend-developer", Students: []int64{students[2]}})
	if err != nil {
		t.Fatalf("UpdateCourseByID: %v", err)
	}
	if updated.Name != "backend-developer" || !reflect.DeepEqual(updated.Students, []int64{students[2]}) {
		t.Fatalf("unexpected course: %+v", updated)
	}

	if err := s.DeleteCourseByID(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCourseByID: %v", err)
	}
	if _, err := s.GetCourseByID(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Students survive their course.
	all, err := s.GetStudents(ctx)
	if err != nil {
		t.Fatalf("GetStudents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 students, got %d", len(all))
	}
}

func TestCourseWithoutStudentsHasEmptyList(t *testing.T) {
	s := newTestStorage(t)

	course, err := s.CreateCourse(context.Background(), types.CourseDraft{Name: "go"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if course.Students == nil || len(course.Students) != 0 {
		t.Fatalf("expected empty non-nil students, got %#v", course.Students)
	}
}

func TestCreateCourseUnknownStudentRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	students := createStudents(t, s, 1)

	_, err := s.CreateCourse(ctx, types.CourseDraft{Name: "go", Students: []int64{students[0], 999}})
	if !errors.Is(err, storage.ErrUnknownStudent) {
		t.Fatalf("expected ErrUnknownStudent, got %v", err)
	}

	courses, err := s.GetCourses(ctx, types.CourseFilter{})
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no courses after rollback, got %+v", courses)
	}
}

func TestUpdateCourseUnknownStudentKeepsState(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	students := createStudents(t, s, 1)

	course, err := s.CreateCourse(ctx, types.CourseDraft{Name: "go", Students: students})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	_, err = s.UpdateCourseByID(ctx, course.ID, types.CourseDraft{Name: "rust", Students: []int64{999}})
	if !errors.Is(err, storage.ErrUnknownStudent) {
		t.Fatalf("expected ErrUnknownStudent, got %v", err)
	}

	got, err := s.GetCourseByID(ctx, course.ID)
	if err != nil {
		t.Fatalf("GetCourseByID: %v", err)
	}
	if !reflect.DeepEqual(got, course) {
		t.Fatalf("course changed: got %+v, want %+v", got, course)
	}
}

func TestGetCoursesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	names := []string{"go", "rust", "go", "zig"}
	var created []types.Course
	for _, name := range names {
		c, err := s.CreateCourse(ctx, types.CourseDraft{Name: name})
		if err != nil {
			t.Fatalf("CreateCourse: %v", err)
		}
		created = append(created, c)
	}

	goName := "go"
	rustID := created[1].ID
	wrongName := "rust"

	tests := []struct {
		name   string
		filter types.CourseFilter
		want   int
	}{
		{"no filter", types.CourseFilter{}, 4},
		{"by id", types.CourseFilter{ID: &rustID}, 1},
		{"by name", types.CourseFilter{Name: &goName}, 2},
		{"by id and name", types.CourseFilter{ID: &rustID, Name: &wrongName}, 1},
		{"by id and other name", types.CourseFilter{ID: &rustID, Name: &goName}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.GetCourses(ctx, tc.filter)
			if err != nil {
				t.Fatalf("GetCourses: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d courses, got %d", tc.want, len(got))
			}
		})
	}
}

func TestDeleteStudentRemovesMembership(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	students := createStudents(t, s, 2)

	course, err := s.CreateCourse(ctx, types.CourseDraft{Name: "go", Students: students})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	if err := s.DeleteStudentByID(ctx, students[0]); err != nil {
		t.Fatalf("DeleteStudentByID: %v", err)
	}

	got, err := s.GetCourseByID(ctx, course.ID)
	if err != nil {
		t.Fatalf("GetCourseByID: %v", err)
	}
	if !reflect.DeepEqual(got.Students, []int64{students[1]}) {
		t.Fatalf("unexpected students: %v", got.Students)
	}
}

func TestMissingRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.DeleteCourseByID(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("DeleteCourseByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateCourseByID(ctx, 42, types.CourseDraft{Name: "go"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdateCourseByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetStudentByID(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetStudentByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateStudentByID(ctx, 42, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdateStudentByID: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteStudentByID(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("DeleteStudentByID: expected ErrNotFound, got %v", err)
	}
}
