package assignment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

type Assignment struct {
	ID          string    `json:"id" db:"id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`     // UTC, nil when there is no deadline
	CreatedAt   time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"` // UTC

	// read-only, populated on fetch
	CourseTitle string `json:"course_title,omitempty" db:"course_title"`
}

func (a *Assignment) IsOverdue() bool {
	return a.DueDate != nil && time.Now().UTC().After(*a.DueDate)
}

type Submission struct {
	ID           string    `json:"id" db:"id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	Content      string    `json:"content" db:"content"`
	SubmittedAt  time.Time `json:"submitted_at" db:"submitted_at"` // UTC, refreshed on resubmission
	Grade        *int      `json:"grade" db:"grade"`               // 0..100, nil until graded
	Feedback     string    `json:"feedback" db:"feedback"`

	// read-only, populated on fetch
	AssignmentTitle string `json:"assignment_title,omitempty" db:"assignment_title"`
	StudentName     string `json:"student_name,omitempty" db:"student_name"`
}

func (s *Submission) IsGraded() bool {
	return s.Grade != nil
}

// IsLate reports whether the submission landed after the assignment's due date.
func (s *Submission) IsLate(a Assignment) bool {
	return a.DueDate != nil && s.SubmittedAt.After(*a.DueDate)
}

type NewAssignment struct {
	CourseID    string    `json:"course_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (na *NewAssignment) Clean() {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
}

func (na *NewAssignment) Validate(ctx context.Context, validate *validator.Validate) error {
	na.Clean()
	return validate.StructCtx(ctx, na)
}

type UpdateAssignment struct {
	Title       string     `json:"title" validate:"omitempty,max=200"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (ua *UpdateAssignment) Clean() {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
}

func (ua *UpdateAssignment) Validate(ctx context.Context, validate *validator.Validate) error {
	ua.Clean()
	return validate.StructCtx(ctx, ua)
}

type NewSubmission struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	Content      string `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(ctx context.Context, validate *validator.Validate) error {
	return validate.StructCtx(ctx, ns)
}

type GradeSubmission struct {
	Grade    *int   `json:"grade" validate:"required,min=0,max=100"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(ctx context.Context, validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.StructCtx(ctx, gs)
}

type QueryFilter struct {
	CourseID string    `query:"course_id"`
	Search   string    `query:"search"`
	DueFrom  time.Time `query:"due_from"`
	DueTo    time.Time `query:"due_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.Search == "" && qf.DueFrom.IsZero() && qf.DueTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type SubmissionFilter struct {
	AssignmentID string `query:"assignment_id"`
	StudentID    string `query:"student_id"`
	Graded       *bool  `query:"graded"`

	// CourseCreatedBy restricts to submissions for assignments in courses
	// created by this user.
	CourseCreatedBy string `query:"-"`
}

func (sf *SubmissionFilter) IsEmpty() bool {
	return sf.AssignmentID == "" && sf.StudentID == "" && sf.Graded == nil && sf.CourseCreatedBy == ""
}
