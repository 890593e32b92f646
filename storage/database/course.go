package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

const enrollmentSelect = `
	SELECT e.id, e.course_id, e.student_id, e.enrolled_at,
	       c.title AS course_title, u.name AS student_name
	FROM enrollments e
	JOIN courses c ON c.id = e.course_id
	JOIN users u ON u.id = e.student_id`

type CourseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (repo *CourseRepository) Query(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	q := `SELECT * FROM courses`

	var (
		conds []string
		args  []interface{}
	)
	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			p := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
		}
		if filter.CreatedBy != "" {
			args = append(args, filter.CreatedBy)
			conds = append(conds, fmt.Sprintf("created_by = $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, "created_at DESC")

	courses := make([]course.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo *CourseRepository) GetByID(ctx context.Context, id string) (course.Course, error) {
	var crs course.Course
	if err := repo.db.GetContext(ctx, &crs, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return crs, nil
}

func (repo *CourseRepository) Create(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()

	q := `
	INSERT INTO courses (id, title, description, created_by, created_at, updated_at)
	VALUES (:id, :title, :description, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, crs); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *CourseRepository) Update(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `
	UPDATE courses
	SET title = :title, description = :description, updated_at = :updated_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, crs)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *CourseRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo *CourseRepository) Enroll(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = uuid.New().String()

	q := `
	INSERT INTO enrollments (id, course_id, student_id, enrolled_at)
	VALUES (:id, :course_id, :student_id, :enrolled_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, enr); err != nil {
		if isUniqueViolation(err, "enrollments_course_student_key") {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *CourseRepository) GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error) {
	var enr course.Enrollment
	if err := repo.db.GetContext(ctx, &enr, enrollmentSelect+` WHERE e.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

func enrollmentConds(filter *course.EnrollmentFilter) ([]string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter == nil || filter.IsEmpty() {
		return conds, args
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conds = append(conds, fmt.Sprintf("e.course_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("e.student_id = $%d", len(args)))
	}
	if filter.CourseCreatedBy != "" {
		args = append(args, filter.CourseCreatedBy)
		conds = append(conds, fmt.Sprintf("c.created_by = $%d", len(args)))
	}
	return conds, args
}

func (repo *CourseRepository) QueryEnrollments(ctx context.Context, filter *course.EnrollmentFilter, ordering ...core.DBOrdering) ([]course.Enrollment, error) {
	q := enrollmentSelect
	conds, args := enrollmentConds(filter)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, "e.enrolled_at DESC")

	enrs := make([]course.Enrollment, 0)
	if err := repo.db.SelectContext(ctx, &enrs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrs, nil
}

func (repo *CourseRepository) CountEnrollments(ctx context.Context, filter *course.EnrollmentFilter) (int, error) {
	q := `SELECT COUNT(*) FROM enrollments e JOIN courses c ON c.id = e.course_id`
	conds, args := enrollmentConds(filter)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

func (repo *CourseRepository) DeleteEnrollment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrEnrollmentNotFound
	}
	return nil
}
