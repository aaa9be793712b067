// Package postgres provides a PostgreSQL implementation of storage.Storage
// backed by a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/courses-api/internal/config"
	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE foreign_key_violation.
const foreignKeyViolation = "23503"

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT      NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT      NOT NULL
	);

	CREATE TABLE IF NOT EXISTS course_students (
		course_id  BIGINT NOT NULL REFERENCES courses(id)  ON DELETE CASCADE,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		PRIMARY KEY (course_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);
`

// Postgres is the pgxpool-backed storage.
type Postgres struct {
	Pool *pgxpool.Pool
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to cfg.Database.PostgresDSN, checks the connection and
// creates the schema if needed.
func New(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create schema: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

func (p *Postgres) CreateStudent(ctx context.Context, name string) (types.Student, error) {
	student := types.Student{Name: name}
	err := p.Pool.QueryRow(ctx,
		"INSERT INTO students (name) VALUES ($1) RETURNING id", name,
	).Scan(&student.ID)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}
	return student, nil
}

func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var student types.Student
	err := p.Pool.QueryRow(ctx,
		"SELECT id, name FROM students WHERE id = $1", id,
	).Scan(&student.ID, &student.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}
	return student, nil
}

func (p *Postgres) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := p.Pool.Query(ctx, "SELECT id, name FROM students ORDER BY id")
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

func (p *Postgres) UpdateStudentByID(ctx context.Context, id int64, name string) (types.Student, error) {
	tag, err := p.Pool.Exec(ctx, "UPDATE students SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	return types.Student{ID: id, Name: name}, nil
}

func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (p *Postgres) CreateCourse(ctx context.Context, draft types.CourseDraft) (types.Course, error) {
	var id int64

	err := p.withTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO courses (name) VALUES ($1) RETURNING id", draft.Name,
		).Scan(&id); err != nil {
			return fmt.Errorf("CreateCourse: insert course: %w", err)
		}
		return insertMembers(ctx, tx, id, draft.Students)
	})
	if err != nil {
		return types.Course{}, err
	}

	return p.GetCourseByID(ctx, id)
}

func (p *Postgres) GetCourseByID(ctx context.Context, id int64) (types.Course, error) {
	courses, err := p.GetCourses(ctx, types.CourseFilter{ID: &id})
	if err != nil {
		return types.Course{}, err
	}
	if len(courses) == 0 {
		return types.Course{}, fmt.Errorf("no course found with id %d: %w", id, storage.ErrNotFound)
	}
	return courses[0], nil
}

func (p *Postgres) GetCourses(ctx context.Context, filter types.CourseFilter) ([]types.Course, error) {
	query := `SELECT c.id, c.name, cs.student_id
		FROM courses c
		LEFT JOIN course_students cs ON cs.course_id = c.id`

	var (
		where []string
		args  []any
	)
	if filter.ID != nil {
		args = append(args, *filter.ID)
		where = append(where, fmt.Sprintf("c.id = $%d", len(args)))
	}
	if filter.Name != nil {
		args = append(args, *filter.Name)
		where = append(where, fmt.Sprintf("c.name = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.id, cs.student_id"

	rows, err := p.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		var (
			id        int64
			name      string
			studentID *int64
		)
		if err := rows.Scan(&id, &name, &studentID); err != nil {
			return nil, fmt.Errorf("GetCourses: scan row: %w", err)
		}

		if n := len(courses); n == 0 || courses[n-1].ID != id {
			courses = append(courses, types.Course{ID: id, Name: name, Students: []int64{}})
		}
		if studentID != nil {
			last := &courses[len(courses)-1]
			last.Students = append(last.Students, *studentID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCourses: rows iteration: %w", err)
	}
	return courses, nil
}

func (p *Postgres) UpdateCourseByID(ctx context.Context, id int64, draft types.CourseDraft) (types.Course, error) {
	err := p.withTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE courses SET name = $1 WHERE id = $2", draft.Name, id)
		if err != nil {
			return fmt.Errorf("UpdateCourseByID: update course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no course found with id %d: %w", id, storage.ErrNotFound)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM course_students WHERE course_id = $1", id); err != nil {
			return fmt.Errorf("UpdateCourseByID: clear members: %w", err)
		}
		return insertMembers(ctx, tx, id, draft.Students)
	})
	if err != nil {
		return types.Course{}, err
	}

	return p.GetCourseByID(ctx, id)
}

func (p *Postgres) DeleteCourseByID(ctx context.Context, id int64) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("DeleteCourseByID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no course found with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// withTransaction runs fn in a transaction, rolling back on error or panic.
func (p *Postgres) withTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx pgx.Tx, courseID int64, students []int64) error {
	if len(students) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, studentID := range students {
		batch.Queue("INSERT INTO course_students (course_id, student_id) VALUES ($1, $2)", courseID, studentID)
	}

	results := tx.SendBatch(ctx, batch)
	for _, studentID := range students {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isForeignKeyError(err) {
				return fmt.Errorf("student %d: %w", studentID, storage.ErrUnknownStudent)
			}
			return fmt.Errorf("insertMembers: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insertMembers: close batch: %w", err)
	}
	return nil
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
