// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, validation and utils can all import types without
// depending on each other.
package types

// Student represents a student record.
type Student struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
}

// Course is a course as stored and as returned to clients.
// Students holds the ids of enrolled students in ascending order and is
// never nil, so it encodes as [] rather than null.
type Course struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Students []int64 `json:"students"`
}

// CourseDraft is the full candidate state of a course before it is
// persisted. Create and update requests are both reduced to a draft and
// validated as one.
type CourseDraft struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Students []int64 `json:"students" validate:"omitempty,unique,dive,gt=0"`
}

// CoursePatch is the body of a partial update. Nil fields are left as
// they are on the stored course.
type CoursePatch struct {
	Name     *string  `json:"name"`
	Students *[]int64 `json:"students"`
}

// Apply returns the draft obtained by applying p on top of c.
func (p CoursePatch) Apply(c Course) CourseDraft {
	draft := CourseDraft{Name: c.Name, Students: c.Students}
	if p.Name != nil {
		draft.Name = *p.Name
	}
	if p.Students != nil {
		draft.Students = *p.Students
	}
	return draft
}

// CourseFilter narrows a course listing. Zero-valued fields do not filter.
type CourseFilter struct {
	ID   *int64
	Name *string
}
