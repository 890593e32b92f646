package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedBy   *string   `json:"created_by" db:"created_by"` // nil once the creator is deleted
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// EditableBy reports whether usr may modify or delete the course.
// Teachers only own what they created; a course orphaned by its creator's
// deletion stays admin-only.
func (c *Course) EditableBy(usr user.User) bool {
	if usr.IsAdmin() {
		return true
	}
	if usr.IsTeacher() {
		return c.CreatedBy != nil && *c.CreatedBy == usr.ID
	}
	return false
}

type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	CourseID   string    `json:"course_id" db:"course_id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC

	// read-only, populated on fetch
	CourseTitle string `json:"course_title,omitempty" db:"course_title"`
	StudentName string `json:"student_name,omitempty" db:"student_name"`
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
}

func (nc *NewCourse) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate) error {
	nc.Clean()
	return validate.StructCtx(ctx, nc)
}

type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description"`
}

func (uc *UpdateCourse) Clean() {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
}

func (uc *UpdateCourse) Validate(ctx context.Context, validate *validator.Validate) error {
	uc.Clean()
	return validate.StructCtx(ctx, uc)
}

type QueryFilter struct {
	Search    string `query:"search"`
	CreatedBy string `query:"created_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CreatedBy == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type EnrollmentFilter struct {
	CourseID  string `query:"course_id"`
	StudentID string `query:"student_id"`

	// CourseCreatedBy restricts to enrollments in courses created by this user.
	CourseCreatedBy string `query:"-"`
}

func (ef *EnrollmentFilter) IsEmpty() bool {
	return ef.CourseID == "" && ef.StudentID == "" && ef.CourseCreatedBy == ""
}
