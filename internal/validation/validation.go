// Package validation enforces the course rules before anything reaches
// storage. The capacity rule (a course holds at most N students) is exposed
// through two entry points backed by the same check:
//
//   - ValidateStudents validates the students list on its own and reports
//     a failure against the "students" field.
//   - Validate validates a whole CourseDraft and reports a failure as a
//     non-field error, next to any other record-level rules.
//
// Both accept and reject exactly the same drafts.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxStudentsPerCourse is used when no limit is configured.
const DefaultMaxStudentsPerCourse = 20

// NonFieldErrors is the key under which record-level failures are reported.
const NonFieldErrors = "non_field_errors"

const (
	fieldStudents = "students"

	tagMaxStudents    = "maxstudents"
	tagCourseCapacity = "coursecapacity"
)

// Mode selects which entry point Check goes through.
type Mode string

const (
	ModeField  Mode = "field"
	ModeObject Mode = "object"
)

// Error is a rejected draft. Fields maps a JSON field name (or
// NonFieldErrors) to the messages reported for it.
type Error struct {
	Fields map[string][]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return strings.Join(parts, "; ")
}

func (e *Error) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *Error) merge(other *Error) {
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.add(field, msg)
		}
	}
}

// Validator checks students and courses against the configured limit.
// It is safe for concurrent use.
type Validator struct {
	max  int
	mode Mode

	// fields knows the maxstudents tag; record knows the struct-level
	// capacity rule. They are kept apart so a field-mode check never
	// reports the same failure twice.
	fields *validator.Validate
	record *validator.Validate
}

// New returns a Validator allowing at most max students per course.
func New(max int, mode Mode) *Validator {
	if mode != ModeObject {
		mode = ModeField
	}

	v := &Validator{
		max:    max,
		mode:   mode,
		fields: newValidate(),
		record: newValidate(),
	}

	// Only fails on an empty tag or nil func.
	if err := v.fields.RegisterValidation(tagMaxStudents, v.withinCapacity); err != nil {
		panic(err)
	}
	v.record.RegisterStructValidation(v.courseCapacity, types.CourseDraft{})

	return v
}

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// Max returns the configured students-per-course limit.
func (v *Validator) Max() int { return v.max }

// Mode returns the mode Check runs in.
func (v *Validator) Mode() Mode { return v.mode }

// ValidateStudents is the field-level entry point. A nil or empty list is
// always accepted.
func (v *Validator) ValidateStudents(ids []int64) error {
	if err := v.fields.Var(ids, tagMaxStudents); err != nil {
		return v.translate(err)
	}
	return nil
}

// Validate is the whole-record entry point.
func (v *Validator) Validate(draft types.CourseDraft) error {
	if err := v.record.Struct(draft); err != nil {
		return v.translate(err)
	}
	return nil
}

// Check validates a draft the way handlers do: through ValidateStudents
// in field mode, through Validate in object mode.
func (v *Validator) Check(draft types.CourseDraft) error {
	if v.mode == ModeObject {
		return v.Validate(draft)
	}

	verr := &Error{}
	if err := v.fields.Struct(draft); err != nil {
		if err := collect(verr, v.translate(err)); err != nil {
			return err
		}
	}
	if err := collect(verr, v.ValidateStudents(draft.Students)); err != nil {
		return err
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Student validates a student record.
func (v *Validator) Student(s types.Student) error {
	if err := v.fields.Struct(s); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *Validator) withinCapacity(fl validator.FieldLevel) bool {
	return fl.Field().Len() <= v.max
}

func (v *Validator) courseCapacity(sl validator.StructLevel) {
	draft := sl.Current().Interface().(types.CourseDraft)
	if len(draft.Students) > v.max {
		sl.ReportError(draft.Students, fieldStudents, "Students", tagCourseCapacity, strconv.Itoa(v.max))
	}
}

func (v *Validator) limitMessage() string {
	return fmt.Sprintf("students can't be more than %d", v.max)
}

// translate turns validator.ValidationErrors into *Error. Anything else
// (an InvalidValidationError, say) is returned unchanged.
func (v *Validator) translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case tagMaxStudents:
			out.add(fieldStudents, v.limitMessage())
		case tagCourseCapacity:
			out.add(NonFieldErrors, v.limitMessage())
		default:
			out.add(fieldName(fe), message(fe))
		}
	}
	return out
}

// collect merges err into dst when it is an *Error and returns any other
// error untouched.
func collect(dst *Error, err error) error {
	if err == nil {
		return nil
	}
	var verr *Error
	if errors.As(err, &verr) {
		dst.merge(verr)
		return nil
	}
	return err
}

// fieldName strips the index from dive errors: "students[3]" -> "students".
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "unique":
		return "Student ids must be unique."
	case "gt":
		return fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
