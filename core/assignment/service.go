package assignment

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotEnrolled        = errors.New("student is not enrolled in this course")
)

type (
	Repository interface {
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		Create(ctx context.Context, asg Assignment) (Assignment, error)
		Update(ctx context.Context, asg Assignment) (Assignment, error)
		Delete(ctx context.Context, ids ...string) error

		// UpsertSubmission inserts a submission or, when the (assignment,
		// student) pair already exists, refreshes its content and
		// submitted_at in place. Grade and feedback are kept. The check
		// and write are atomic.
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter, ordering ...core.DBOrdering) ([]Submission, error)
		CountSubmissions(ctx context.Context, filter *SubmissionFilter) (int, error)
		AverageGrade(ctx context.Context, studentID string) (*float64, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAssignment) (Assignment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, ids ...string) error

		Submit(ctx context.Context, ns NewSubmission, student user.User) (Submission, error)
		Grade(ctx context.Context, submissionID string, gs GradeSubmission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		VisibleSubmissions(ctx context.Context, actor user.User, filter *SubmissionFilter, ordering ...core.DBOrdering) ([]Submission, error)
		SubmissionCount(ctx context.Context, studentID string) (int, error)
		AverageGrade(ctx context.Context, studentID string) (*float64, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		validate  *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, validate *validator.Validate) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		validate:  validate,
	}
}

func (s *service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	if err := na.Validate(ctx, s.validate); err != nil {
		return Assignment{}, err
	}
	crs, err := s.courseSvc.GetByID(ctx, na.CourseID)
	if err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	asg := Assignment{
		CourseID:    crs.ID,
		Title:       na.Title,
		Description: na.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.DueDate != nil {
		due := na.DueDate.UTC()
		asg.DueDate = &due
	}
	return s.repo.Create(ctx, asg)
}

func (s *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Assignment, error) {
	if filter != nil {
		filter.Clean()
	}
	return s.repo.Query(ctx, filter, ordering...)
}

func (s *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	asg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(ctx, s.validate); err != nil {
		return Assignment{}, err
	}

	if ua.Title != "" {
		asg.Title = ua.Title
	}
	if ua.Description != "" {
		asg.Description = ua.Description
	}
	if ua.DueDate != nil {
		due := ua.DueDate.UTC()
		asg.DueDate = &due
	}
	asg.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, asg)
}

func (s *service) Delete(ctx context.Context, ids ...string) error {
	return s.repo.Delete(ctx, ids...)
}

// Submit records a student's submission. Resubmissions replace the
// content and refresh submitted_at on the same row; an existing grade
// and feedback are kept. The student must be enrolled in the
// assignment's course.
func (s *service) Submit(ctx context.Context, ns NewSubmission, student user.User) (Submission, error) {
	if err := ns.Validate(ctx, s.validate); err != nil {
		return Submission{}, err
	}
	asg, err := s.repo.GetByID(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	enrolled, err := s.courseSvc.IsEnrolled(ctx, asg.CourseID, student.ID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, ErrNotEnrolled
	}

	sub := Submission{
		AssignmentID: asg.ID,
		StudentID:    student.ID,
		Content:      ns.Content,
		SubmittedAt:  time.Now().UTC(),
	}
	return s.repo.UpsertSubmission(ctx, sub)
}

func (s *service) Grade(ctx context.Context, submissionID string, gs GradeSubmission) (Submission, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if err = gs.Validate(ctx, s.validate); err != nil {
		return Submission{}, err
	}

	sub.Grade = gs.Grade
	sub.Feedback = gs.Feedback
	return s.repo.UpdateSubmission(ctx, sub)
}

func (s *service) GetSubmissionByID(ctx context.Context, id string) (Submission, error) {
	return s.repo.GetSubmissionByID(ctx, id)
}

// VisibleSubmissions narrows the filter to what the actor may see:
// students see their own submissions, teachers see submissions for
// assignments in their courses, admins see everything. Unknown roles
// see nothing.
func (s *service) VisibleSubmissions(ctx context.Context, actor user.User, filter *SubmissionFilter, ordering ...core.DBOrdering) ([]Submission, error) {
	if filter == nil {
		filter = &SubmissionFilter{}
	}
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleTeacher:
		filter.CourseCreatedBy = actor.ID
	case user.RoleStudent:
		filter.StudentID = actor.ID
	default:
		return []Submission{}, nil
	}
	return s.repo.QuerySubmissions(ctx, filter, ordering...)
}

func (s *service) SubmissionCount(ctx context.Context, studentID string) (int, error) {
	return s.repo.CountSubmissions(ctx, &SubmissionFilter{StudentID: studentID})
}

// AverageGrade returns the student's average over graded submissions,
// rounded to 1 decimal. Nil when nothing has been graded yet.
func (s *service) AverageGrade(ctx context.Context, studentID string) (*float64, error) {
	avg, err := s.repo.AverageGrade(ctx, studentID)
	if err != nil || avg == nil {
		return nil, err
	}
	rounded := math.Round(*avg*10) / 10
	return &rounded, nil
}
