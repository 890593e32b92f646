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
	"github.com/darasahq/darasa/core/assignment"
)

const submissionSelect = `
	SELECT s.id, s.assignment_id, s.student_id, s.content, s.submitted_at, s.grade, s.feedback,
	       a.title AS assignment_title, u.name AS student_name
	FROM submissions s
	JOIN assignments a ON a.id = s.assignment_id
	JOIN users u ON u.id = s.student_id`

type AssignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*AssignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (repo *AssignmentRepository) Query(ctx context.Context, filter *assignment.QueryFilter, ordering ...core.DBOrdering) ([]assignment.Assignment, error) {
	q := `
	SELECT a.*, c.title AS course_title
	FROM assignments a
	JOIN courses c ON c.id = a.course_id`

	var (
		conds []string
		args  []interface{}
	)
	if filter != nil && !filter.IsEmpty() {
		if filter.CourseID != "" {
			args = append(args, filter.CourseID)
			conds = append(conds, fmt.Sprintf("a.course_id = $%d", len(args)))
		}
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			p := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(a.title ILIKE %s OR a.description ILIKE %s)", p, p))
		}
		if !filter.DueFrom.IsZero() {
			args = append(args, filter.DueFrom)
			conds = append(conds, fmt.Sprintf("a.due_date >= $%d", len(args)))
		}
		if !filter.DueTo.IsZero() {
			args = append(args, filter.DueTo)
			conds = append(conds, fmt.Sprintf("a.due_date <= $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, "a.due_date ASC")

	asgs := make([]assignment.Assignment, 0)
	if err := repo.db.SelectContext(ctx, &asgs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return asgs, nil
}

func (repo *AssignmentRepository) GetByID(ctx context.Context, id string) (assignment.Assignment, error) {
	q := `
	SELECT a.*, c.title AS course_title
	FROM assignments a
	JOIN courses c ON c.id = a.course_id
	WHERE a.id = $1`

	var asg assignment.Assignment
	if err := repo.db.GetContext(ctx, &asg, q, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return asg, nil
}

func (repo *AssignmentRepository) Create(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.New().String()

	q := `
	INSERT INTO assignments (id, course_id, title, description, due_date, created_at, updated_at)
	VALUES (:id, :course_id, :title, :description, :due_date, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, asg); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *AssignmentRepository) Update(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	q := `
	UPDATE assignments
	SET title = :title, description = :description, due_date = :due_date, updated_at = :updated_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, asg)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *AssignmentRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting assignments")
	}
	return nil
}

// UpsertSubmission relies on the (assignment_id, student_id) unique
// constraint: a resubmission updates content and submitted_at on the
// existing row in a single statement, keeping its id, grade and feedback.
func (repo *AssignmentRepository) UpsertSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q := `
	INSERT INTO submissions (id, assignment_id, student_id, content, submitted_at, grade, feedback)
	VALUES ($1, $2, $3, $4, $5, NULL, '')
	ON CONFLICT ON CONSTRAINT submissions_assignment_student_key
	DO UPDATE SET content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at
	RETURNING id, assignment_id, student_id, content, submitted_at, grade, feedback`

	var saved assignment.Submission
	err := repo.db.GetContext(ctx, &saved, q, uuid.New().String(), sub.AssignmentID, sub.StudentID, sub.Content, sub.SubmittedAt)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return saved, nil
}

func (repo *AssignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	var sub assignment.Submission
	if err := repo.db.GetContext(ctx, &sub, submissionSelect+` WHERE s.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return sub, nil
}

func (repo *AssignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q := `
	UPDATE submissions
	SET content = :content, submitted_at = :submitted_at, grade = :grade, feedback = :feedback
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, sub)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}

func submissionConds(filter *assignment.SubmissionFilter) ([]string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter == nil || filter.IsEmpty() {
		return conds, args
	}
	if filter.AssignmentID != "" {
		args = append(args, filter.AssignmentID)
		conds = append(conds, fmt.Sprintf("s.assignment_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("s.student_id = $%d", len(args)))
	}
	if filter.Graded != nil {
		if *filter.Graded {
			conds = append(conds, "s.grade IS NOT NULL")
		} else {
			conds = append(conds, "s.grade IS NULL")
		}
	}
	if filter.CourseCreatedBy != "" {
		args = append(args, filter.CourseCreatedBy)
		conds = append(conds, fmt.Sprintf("c.created_by = $%d", len(args)))
	}
	return conds, args
}

func (repo *AssignmentRepository) QuerySubmissions(ctx context.Context, filter *assignment.SubmissionFilter, ordering ...core.DBOrdering) ([]assignment.Submission, error) {
	q := submissionSelect + `
	JOIN courses c ON c.id = a.course_id`
	conds, args := submissionConds(filter)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, "s.submitted_at DESC")

	subs := make([]assignment.Submission, 0)
	if err := repo.db.SelectContext(ctx, &subs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (repo *AssignmentRepository) CountSubmissions(ctx context.Context, filter *assignment.SubmissionFilter) (int, error) {
	q := `
	SELECT COUNT(*)
	FROM submissions s
	JOIN assignments a ON a.id = s.assignment_id
	JOIN courses c ON c.id = a.course_id`
	conds, args := submissionConds(filter)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}

func (repo *AssignmentRepository) AverageGrade(ctx context.Context, studentID string) (*float64, error) {
	q := `SELECT AVG(grade) FROM submissions WHERE student_id = $1 AND grade IS NOT NULL`

	var avg sql.NullFloat64
	if err := repo.db.GetContext(ctx, &avg, q, studentID); err != nil {
		return nil, errors.Wrap(err, "averaging grades")
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
