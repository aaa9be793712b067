package validation

import (
	"errors"
	"testing"

	"github.com/aanand-mishra/courses-api/internal/types"
)

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestValidateStudents(t *testing.T) {
	v := New(DefaultMaxStudentsPerCourse, ModeField)

	tests := []struct {
		name    string
		ids     []int64
		wantErr bool
	}{
		{"nil", nil, false},
		{"empty", []int64{}, false},
		{"one", ids(1), false},
		{"at limit", ids(20), false},
		{"over limit", ids(21), true},
		{"far over limit", ids(50), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateStudents(tc.ids)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			msgs := verr.Fields["students"]
			if len(msgs) != 1 || msgs[0] != "students can't be more than 20" {
				t.Fatalf("unexpected messages: %v", verr.Fields)
			}
		})
	}
}

func TestValidateReportsNonFieldError(t *testing.T) {
	v := New(DefaultMaxStudentsPerCourse, ModeObject)

	if err := v.Validate(types.CourseDraft{Name: "go", Students: ids(20)}); err != nil {
		t.Fatalf("20 students should be accepted: %v", err)
	}

	err := v.Validate(types.CourseDraft{Name: "go", Students: ids(21)})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if _, ok := verr.Fields["students"]; ok {
		t.Fatalf("capacity should not be reported on the students field: %v", verr.Fields)
	}
	if msgs := verr.Fields[NonFieldErrors]; len(msgs) != 1 || msgs[0] != "students can't be more than 20" {
		t.Fatalf("unexpected messages: %v", verr.Fields)
	}
}

func TestModesAgree(t *testing.T) {
	field := New(DefaultMaxStudentsPerCourse, ModeField)
	object := New(DefaultMaxStudentsPerCourse, ModeObject)

	for n := 0; n <= 25; n++ {
		draft := types.CourseDraft{Name: "course", Students: ids(n)}
		fieldErr := field.Check(draft)
		objectErr := object.Check(draft)
		if (fieldErr == nil) != (objectErr == nil) {
			t.Fatalf("n=%d: field=%v object=%v", n, fieldErr, objectErr)
		}
		if (fieldErr == nil) != (n <= 20) {
			t.Fatalf("n=%d: unexpected decision %v", n, fieldErr)
		}
	}
}

func TestCheckCollectsFieldErrors(t *testing.T) {
	v := New(2, ModeField)

	err := v.Check(types.CourseDraft{Students: []int64{1, 2, 3}})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if len(verr.Fields["name"]) != 1 {
		t.Fatalf("expected a name error: %v", verr.Fields)
	}
	if msgs := verr.Fields["students"]; len(msgs) != 1 || msgs[0] != "students can't be more than 2" {
		t.Fatalf("expected a students error: %v", verr.Fields)
	}
}

func TestCheckRejectsBadIDs(t *testing.T) {
	v := New(DefaultMaxStudentsPerCourse, ModeField)

	tests := []struct {
		name     string
		students []int64
	}{
		{"duplicate", []int64{1, 1}},
		{"zero", []int64{0}},
		{"negative", []int64{-4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Check(types.CourseDraft{Name: "go", Students: tc.students})
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if len(verr.Fields["students"]) == 0 {
				t.Fatalf("expected a students error: %v", verr.Fields)
			}
		})
	}
}

func TestConfiguredLimit(t *testing.T) {
	v := New(3, ModeObject)
	if v.Max() != 3 {
		t.Fatalf("Max() = %d", v.Max())
	}
	if err := v.Check(types.CourseDraft{Name: "go", Students: ids(3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Check(types.CourseDraft{Name: "go", Students: ids(4)}); err == nil {
		t.Fatal("expected error for 4 students")
	}
}

func TestStudent(t *testing.T) {
	v := New(DefaultMaxStudentsPerCourse, ModeField)

	if err := v.Student(types.Student{Name: "Rakesh"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := v.Student(types.Student{})
	var verr *Error
	if !errors.As(err, &verr) || len(verr.Fields["name"]) != 1 {
		t.Fatalf("expected name error, got %v", err)
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{}
	e.add("students", "too many")
	e.add("name", "required")
	if got, want := e.Error(), "name: required; students: too many"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
