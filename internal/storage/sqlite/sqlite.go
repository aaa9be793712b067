// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface on top of database/sql.
//
// The blank-imported driver registers itself as "sqlite3". Foreign keys
// are switched on through the DSN so that deleting a course or a student
// cascades to course_students.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/courses-api/internal/config"
	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT    NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT    NOT NULL
	);

	CREATE TABLE IF NOT EXISTS course_students (
		course_id  INTEGER NOT NULL REFERENCES courses(id)  ON DELETE CASCADE,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		PRIMARY KEY (course_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);
`

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at cfg.StoragePath and creates the
// schema if it does not exist yet.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.StoragePath))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite serialises writers anyway; a single connection avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create schema: %w", err)
	}

	return &SQLite{Db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) CreateStudent(ctx context.Context, name string) (types.Student, error) {
	result, err := s.Db.ExecContext(ctx, "INSERT INTO students (name) VALUES (?)", name)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	return types.Student{ID: lastID, Name: name}, nil
}

func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var student types.Student

	err := s.Db.QueryRowContext(ctx,
		"SELECT id, name FROM students WHERE id = ? LIMIT 1", id,
	).Scan(&student.ID, &student.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx, "SELECT id, name FROM students ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(&student.ID, &student.Name); err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

func (s *SQLite) UpdateStudentByID(ctx context.Context, id int64, name string) (types.Student, error) {
	result, err := s.Db.ExecContext(ctx, "UPDATE students SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}
	if err := mustAffect(result, "student", id); err != nil {
		return types.Student{}, err
	}

	return types.Student{ID: id, Name: name}, nil
}

func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) error {
	result, err := s.Db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}
	return mustAffect(result, "student", id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) CreateCourse(ctx context.Context, draft types.CourseDraft) (types.Course, error) {
	var id int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "INSERT INTO courses (name) VALUES (?)", draft.Name)
		if err != nil {
			return fmt.Errorf("CreateCourse: insert course: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("CreateCourse: last insert id: %w", err)
		}
		return insertMembers(ctx, tx, id, draft.Students)
	})
	if err != nil {
		return types.Course{}, err
	}

	return s.GetCourseByID(ctx, id)
}

func (s *SQLite) GetCourseByID(ctx context.Context, id int64) (types.Course, error) {
	courses, err := s.GetCourses(ctx, types.CourseFilter{ID: &id})
	if err != nil {
		return types.Course{}, err
	}
	if len(courses) == 0 {
		return types.Course{}, fmt.Errorf("no course found with id %d: %w", id, storage.ErrNotFound)
	}
	return courses[0], nil
}

func (s *SQLite) GetCourses(ctx context.Context, filter types.CourseFilter) ([]types.Course, error) {
	query := `SELECT c.id, c.name, cs.student_id
		FROM courses c
		LEFT JOIN course_students cs ON cs.course_id = c.id`

	var (
		where []string
		args  []any
	)
	if filter.ID != nil {
		where = append(where, "c.id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Name != nil {
		where = append(where, "c.name = ?")
		args = append(args, *filter.Name)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.id, cs.student_id"

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		var (
			id        int64
			name      string
			studentID sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &studentID); err != nil {
			return nil, fmt.Errorf("GetCourses: scan row: %w", err)
		}

		// Rows come grouped by course; start a new one when the id changes.
		if n := len(courses); n == 0 || courses[n-1].ID != id {
			courses = append(courses, types.Course{ID: id, Name: name, Students: []int64{}})
		}
		if studentID.Valid {
			last := &courses[len(courses)-1]
			last.Students = append(last.Students, studentID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCourses: rows iteration: %w", err)
	}

	return courses, nil
}

func (s *SQLite) UpdateCourseByID(ctx context.Context, id int64, draft types.CourseDraft) (types.Course, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE courses SET name = ? WHERE id = ?", draft.Name, id)
		if err != nil {
			return fmt.Errorf("UpdateCourseByID: update course: %w", err)
		}
		if err := mustAffect(result, "course", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM course_students WHERE course_id = ?", id); err != nil {
			return fmt.Errorf("UpdateCourseByID: clear members: %w", err)
		}
		return insertMembers(ctx, tx, id, draft.Students)
	})
	if err != nil {
		return types.Course{}, err
	}

	return s.GetCourseByID(ctx, id)
}

func (s *SQLite) DeleteCourseByID(ctx context.Context, id int64) error {
	result, err := s.Db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteCourseByID: exec: %w", err)
	}
	return mustAffect(result, "course", id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// withTx runs fn inside a transaction and rolls back if fn fails.
func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, courseID int64, students []int64) error {
	if len(students) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO course_students (course_id, student_id) VALUES (?, ?)",
	)
	if err != nil {
		return fmt.Errorf("insertMembers: prepare: %w", err)
	}
	defer stmt.Close()

	for _, studentID := range students {
		if _, err := stmt.ExecContext(ctx, courseID, studentID); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("student %d: %w", studentID, storage.ErrUnknownStudent)
			}
			return fmt.Errorf("insertMembers: exec: %w", err)
		}
	}
	return nil
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func mustAffect(result sql.Result, kind string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no %s found with id %d: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
