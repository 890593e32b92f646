package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrNotFound           = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")
)

type (
	Repository interface {
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Create(ctx context.Context, crs Course) (Course, error)
		Update(ctx context.Context, crs Course) (Course, error)
		Delete(ctx context.Context, ids ...string) error

		// Enroll returns ErrAlreadyEnrolled when the (course, student)
		// pair already exists. The check and insert are atomic.
		Enroll(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
		CountEnrollments(ctx context.Context, filter *EnrollmentFilter) (int, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse, creator user.User) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error

		Enroll(ctx context.Context, courseID string, student user.User) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		VisibleEnrollments(ctx context.Context, actor user.User, filter *EnrollmentFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
		EnrollmentCount(ctx context.Context, studentID string) (int, error)
		IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
		Unenroll(ctx context.Context, id string) error
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		validate: validate,
	}
}

func (s *service) Create(ctx context.Context, nc NewCourse, creator user.User) (Course, error) {
	if err := nc.Validate(ctx, s.validate); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		CreatedBy:   &creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.repo.Create(ctx, crs)
}

func (s *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return s.repo.Query(ctx, filter, ordering...)
}

func (s *service) GetByID(ctx context.Context, id string) (Course, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(ctx, s.validate); err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	crs.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, crs)
}

func (s *service) Delete(ctx context.Context, ids ...string) error {
	return s.repo.Delete(ctx, ids...)
}

// Enroll enrolls a student into a course. The course must exist and the
// target user must hold the student role.
func (s *service) Enroll(ctx context.Context, courseID string, student user.User) (Enrollment, error) {
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "only students can be enrolled"})
	}
	crs, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	enr := Enrollment{
		CourseID:   crs.ID,
		StudentID:  student.ID,
		EnrolledAt: time.Now().UTC(),
	}
	return s.repo.Enroll(ctx, enr)
}

func (s *service) GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error) {
	return s.repo.GetEnrollmentByID(ctx, id)
}

// VisibleEnrollments narrows the filter to what the actor may see:
// students see their own enrollments, teachers see enrollments in their
// courses, admins see everything. Unknown roles see nothing.
func (s *service) VisibleEnrollments(ctx context.Context, actor user.User, filter *EnrollmentFilter, ordering ...core.DBOrdering) ([]Enrollment, error) {
	if filter == nil {
		filter = &EnrollmentFilter{}
	}
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleTeacher:
		filter.CourseCreatedBy = actor.ID
	case user.RoleStudent:
		filter.StudentID = actor.ID
	default:
		return []Enrollment{}, nil
	}
	return s.repo.QueryEnrollments(ctx, filter, ordering...)
}

func (s *service) EnrollmentCount(ctx context.Context, studentID string) (int, error) {
	return s.repo.CountEnrollments(ctx, &EnrollmentFilter{StudentID: studentID})
}

func (s *service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	count, err := s.repo.CountEnrollments(ctx, &EnrollmentFilter{CourseID: courseID, StudentID: studentID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *service) Unenroll(ctx context.Context, id string) error {
	return s.repo.DeleteEnrollment(ctx, id)
}
