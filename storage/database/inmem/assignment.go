package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) denormalize(asg assignment.Assignment) assignment.Assignment {
	if crs, ok := repo.db.courses[asg.CourseID]; ok {
		asg.CourseTitle = crs.Title
	}
	return asg
}

func (repo *assignmentRepository) Query(ctx context.Context, filter *assignment.QueryFilter, ordering ...core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if filter != nil && !filter.IsEmpty() {
			if filter.CourseID != "" && asg.CourseID != filter.CourseID {
				continue
			}
			if filter.Search != "" && !matchesSearch(filter.Search, asg.Title, asg.Description) {
				continue
			}
			if !filter.DueFrom.IsZero() && (asg.DueDate == nil || asg.DueDate.Before(filter.DueFrom)) {
				continue
			}
			if !filter.DueTo.IsZero() && (asg.DueDate == nil || asg.DueDate.After(filter.DueTo)) {
				continue
			}
		}
		asgs = append(asgs, repo.denormalize(*asg))
	}
	// soonest deadline first, assignments without one last
	sort.SliceStable(asgs, func(i, j int) bool {
		di, dj := asgs[i].DueDate, asgs[j].DueDate
		if di == nil || dj == nil {
			return dj == nil && di != nil
		}
		return di.Before(*dj)
	})
	return asgs, nil
}

func (repo *assignmentRepository) GetByID(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return repo.denormalize(*asg), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) Create(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	asg.ID = uuid.New().String()
	repo.db.assignments[asg.ID] = &asg
	return repo.denormalize(asg), nil
}

func (repo *assignmentRepository) Update(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignments[asg.ID] = &asg
	return repo.denormalize(asg), nil
}

func (repo *assignmentRepository) Delete(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.assignments, id)

		for sid, sub := range repo.db.submissions {
			if sub.AssignmentID == id {
				delete(repo.db.submissions, sid)
			}
		}
	}
	return nil
}

func (repo *assignmentRepository) denormalizeSub(sub assignment.Submission) assignment.Submission {
	if asg, ok := repo.db.assignments[sub.AssignmentID]; ok {
		sub.AssignmentTitle = asg.Title
	}
	if usr, ok := repo.db.users[sub.StudentID]; ok {
		sub.StudentName = usr.Name
	}
	return sub
}

func (repo *assignmentRepository) UpsertSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.submissions {
		if existing.AssignmentID == sub.AssignmentID && existing.StudentID == sub.StudentID {
			existing.Content = sub.Content
			existing.SubmittedAt = sub.SubmittedAt
			return repo.denormalizeSub(*existing), nil
		}
	}
	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return repo.denormalizeSub(sub), nil
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return repo.denormalizeSub(*sub), nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.submissions[sub.ID]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.submissions[sub.ID] = &sub
	return repo.denormalizeSub(sub), nil
}

func (repo *assignmentRepository) matchesSubmission(sub assignment.Submission, filter *assignment.SubmissionFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
		return false
	}
	if filter.StudentID != "" && sub.StudentID != filter.StudentID {
		return false
	}
	if filter.Graded != nil && sub.IsGraded() != *filter.Graded {
		return false
	}
	if filter.CourseCreatedBy != "" {
		asg, ok := repo.db.assignments[sub.AssignmentID]
		if !ok {
			return false
		}
		crs, ok := repo.db.courses[asg.CourseID]
		if !ok || crs.CreatedBy == nil || *crs.CreatedBy != filter.CourseCreatedBy {
			return false
		}
	}
	return true
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, filter *assignment.SubmissionFilter, ordering ...core.DBOrdering) ([]assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.submissions {
		if repo.matchesSubmission(*sub, filter) {
			subs = append(subs, repo.denormalizeSub(*sub))
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, filter *assignment.SubmissionFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, sub := range repo.db.submissions {
		if repo.matchesSubmission(*sub, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *assignmentRepository) AverageGrade(ctx context.Context, studentID string) (*float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var (
		sum float64
		n   int
	)
	for _, sub := range repo.db.submissions {
		if sub.StudentID == studentID && sub.IsGraded() {
			sum += float64(*sub.Grade)
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}
