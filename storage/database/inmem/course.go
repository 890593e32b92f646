package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) Query(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter != nil && !filter.IsEmpty() {
			if filter.Search != "" && !matchesSearch(filter.Search, crs.Title, crs.Description) {
				continue
			}
			if filter.CreatedBy != "" && (crs.CreatedBy == nil || *crs.CreatedBy != filter.CreatedBy) {
				continue
			}
		}
		courses = append(courses, *crs)
	}
	sortCourses(courses, ordering)
	return courses, nil
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	ord := core.DBOrdering{Field: "created_at"}
	if len(ordering) > 0 {
		ord = ordering[0]
	}
	sort.SliceStable(courses, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "title":
			less = courses[i].Title < courses[j].Title
		default:
			less = courses[i].CreatedAt.Before(courses[j].CreatedAt)
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *courseRepository) GetByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) Create(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) Update(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) Delete(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.courses, id)

		for eid, enr := range repo.db.enrollments {
			if enr.CourseID == id {
				delete(repo.db.enrollments, eid)
			}
		}
		for aid, asg := range repo.db.assignments {
			if asg.CourseID != id {
				continue
			}
			delete(repo.db.assignments, aid)
			for sid, sub := range repo.db.submissions {
				if sub.AssignmentID == aid {
					delete(repo.db.submissions, sid)
				}
			}
		}
	}
	return nil
}

func (repo *courseRepository) Enroll(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.CourseID == enr.CourseID && existing.StudentID == enr.StudentID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	enr.ID = uuid.New().String()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

// denormalize populates the read-only join fields.
func (repo *courseRepository) denormalize(enr course.Enrollment) course.Enrollment {
	if crs, ok := repo.db.courses[enr.CourseID]; ok {
		enr.CourseTitle = crs.Title
	}
	if usr, ok := repo.db.users[enr.StudentID]; ok {
		enr.StudentName = usr.Name
	}
	return enr
}

func (repo *courseRepository) GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return repo.denormalize(*enr), nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) matchesEnrollment(enr course.Enrollment, filter *course.EnrollmentFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.CourseID != "" && enr.CourseID != filter.CourseID {
		return false
	}
	if filter.StudentID != "" && enr.StudentID != filter.StudentID {
		return false
	}
	if filter.CourseCreatedBy != "" {
		crs, ok := repo.db.courses[enr.CourseID]
		if !ok || crs.CreatedBy == nil || *crs.CreatedBy != filter.CourseCreatedBy {
			return false
		}
	}
	return true
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, filter *course.EnrollmentFilter, ordering ...core.DBOrdering) ([]course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if repo.matchesEnrollment(*enr, filter) {
			enrs = append(enrs, repo.denormalize(*enr))
		}
	}
	sort.SliceStable(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.After(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, filter *course.EnrollmentFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, enr := range repo.db.enrollments {
		if repo.matchesEnrollment(*enr, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return course.ErrEnrollmentNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}
