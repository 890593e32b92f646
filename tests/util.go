package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title, description string, createdBy *string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.Create(context.Background(), course.Course{
		Title:       title,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateEnrollment(t *testing.T, repo course.Repository, courseID, studentID string) course.Enrollment {
	t.Helper()

	enr, err := repo.Enroll(context.Background(), course.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateAssignment(t *testing.T, repo assignment.Repository, courseID, title string, dueDate time.Time) assignment.Assignment {
	t.Helper()

	now := time.Now().UTC()
	asg := assignment.Assignment{
		CourseID:  courseID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !dueDate.IsZero() {
		due := dueDate.UTC()
		asg.DueDate = &due
	}
	asg, err := repo.Create(context.Background(), asg)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

func CreateSubmission(t *testing.T, repo assignment.Repository, assignmentID, studentID, content string, grade ...int) assignment.Submission {
	t.Helper()

	sub, err := repo.UpsertSubmission(context.Background(), assignment.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      content,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	if len(grade) > 0 {
		sub.Grade = &grade[0]
		sub, err = repo.UpdateSubmission(context.Background(), sub)
		if err != nil {
			t.Fatalf("CreateSubmission() failed: %v", err)
		}
	}
	return sub
}
