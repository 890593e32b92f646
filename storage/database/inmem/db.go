// Package inmemdb provides in-memory repositories with the same
// semantics as the SQL implementations (unique constraints, cascades,
// upserts). Used by tests and local tinkering; not safe for production.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type DB struct {
	mu sync.RWMutex

	users       map[string]*user.User
	courses     map[string]*course.Course
	enrollments map[string]*course.Enrollment
	assignments map[string]*assignment.Assignment
	submissions map[string]*assignment.Submission
}

func NewDB() *DB {
	db := &DB{}
	db.Reset()
	return db
}

func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*course.Course)
	db.enrollments = make(map[string]*course.Enrollment)
	db.assignments = make(map[string]*assignment.Assignment)
	db.submissions = make(map[string]*assignment.Submission)
}
