package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

func setup(t *testing.T) (assignment.Service, course.Repository, assignment.Repository) {
	t.Helper()

	db := inmemdb.NewDB()
	crsRepo := inmemdb.NewCourseRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)

	validate := validator.New()
	crsSvc := course.NewService(crsRepo, validate)
	return assignment.NewService(asgRepo, crsSvc, validate), crsRepo, asgRepo
}

func Test_service_Submit(t *testing.T) {
	svc, crsRepo, asgRepo := setup(t)
	ctx := context.Background()

	teacherID := "t1"
	student := user.User{ID: "s1", Role: user.RoleStudent}
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacherID)
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", time.Now().Add(24*time.Hour))

	ns := assignment.NewSubmission{AssignmentID: asg.ID, Content: "draft"}

	// must be enrolled
	if _, err := svc.Submit(ctx, ns, student); err != assignment.ErrNotEnrolled {
		t.Errorf("Submit() error = %v, want %v", err, assignment.ErrNotEnrolled)
	}

	testutil.CreateEnrollment(t, crsRepo, crs.ID, student.ID)
	sub, err := svc.Submit(ctx, ns, student)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	grade := 85
	if _, err = svc.Grade(ctx, sub.ID, assignment.GradeSubmission{Grade: &grade, Feedback: "Solid"}); err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}

	// resubmission lands on the same row, keeps the grade, refreshes the rest
	ns.Content = "final answer"
	resub, err := svc.Submit(ctx, ns, student)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if resub.ID != sub.ID {
		t.Errorf("Submit() id = %v, want %v", resub.ID, sub.ID)
	}
	if resub.Content != "final answer" {
		t.Errorf("Submit() content = %q, want %q", resub.Content, "final answer")
	}
	if resub.Grade == nil || *resub.Grade != grade {
		t.Errorf("Submit() grade = %v, want %d", resub.Grade, grade)
	}
	if resub.Feedback != "Solid" {
		t.Errorf("Submit() feedback = %q, want %q", resub.Feedback, "Solid")
	}
	if !resub.SubmittedAt.After(sub.SubmittedAt) {
		t.Errorf("Submit() submitted_at not refreshed: %v <= %v", resub.SubmittedAt, sub.SubmittedAt)
	}
}

func Test_service_Grade_validation(t *testing.T) {
	svc, crsRepo, asgRepo := setup(t)
	ctx := context.Background()

	teacherID := "t1"
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacherID)
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", time.Now().Add(24*time.Hour))
	sub := testutil.CreateSubmission(t, asgRepo, asg.ID, "s1", "my answer")

	over := 101
	if _, err := svc.Grade(ctx, sub.ID, assignment.GradeSubmission{Grade: &over}); err == nil {
		t.Error("Grade() expected an error for grade > 100")
	}
	if _, err := svc.Grade(ctx, sub.ID, assignment.GradeSubmission{}); err == nil {
		t.Error("Grade() expected an error for a missing grade")
	}
	if _, err := svc.Grade(ctx, "b74s", assignment.GradeSubmission{}); err != assignment.ErrSubmissionNotFound {
		t.Errorf("Grade() error = %v, want %v", err, assignment.ErrSubmissionNotFound)
	}
}

func Test_service_AverageGrade(t *testing.T) {
	svc, crsRepo, asgRepo := setup(t)
	ctx := context.Background()

	teacherID := "t1"
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacherID)
	due := time.Now().Add(24 * time.Hour)
	asg1 := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", due)
	asg2 := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 2", due)
	asg3 := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 3", due)

	// nothing graded yet
	testutil.CreateSubmission(t, asgRepo, asg1.ID, "s1", "a")
	avg, err := svc.AverageGrade(ctx, "s1")
	if err != nil {
		t.Fatalf("AverageGrade() failed: %v", err)
	}
	if avg != nil {
		t.Errorf("AverageGrade() = %v, want nil", *avg)
	}

	// 70, 71, 73 averages to 71.333..., reported to 1 decimal
	testutil.CreateSubmission(t, asgRepo, asg1.ID, "s2", "a", 70)
	testutil.CreateSubmission(t, asgRepo, asg2.ID, "s2", "b", 71)
	testutil.CreateSubmission(t, asgRepo, asg3.ID, "s2", "c", 73)
	avg, err = svc.AverageGrade(ctx, "s2")
	if err != nil {
		t.Fatalf("AverageGrade() failed: %v", err)
	}
	if avg == nil || *avg != 71.3 {
		t.Errorf("AverageGrade() = %v, want 71.3", avg)
	}
}

func Test_service_VisibleSubmissions(t *testing.T) {
	svc, crsRepo, asgRepo := setup(t)
	ctx := context.Background()

	teacherID := "t1"
	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacherID)
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", time.Now().Add(24*time.Hour))
	testutil.CreateSubmission(t, asgRepo, asg.ID, "s1", "a")
	testutil.CreateSubmission(t, asgRepo, asg.ID, "s2", "b")

	tests := []struct {
		name  string
		actor user.User
		want  int
	}{
		{name: "admin sees all", actor: user.User{ID: "a1", Role: user.RoleAdmin}, want: 2},
		{name: "teacher sees their courses'", actor: user.User{ID: teacherID, Role: user.RoleTeacher}, want: 2},
		{name: "other teacher sees none", actor: user.User{ID: "t2", Role: user.RoleTeacher}, want: 0},
		{name: "student sees their own", actor: user.User{ID: "s1", Role: user.RoleStudent}, want: 1},
		{name: "unknown role sees nothing", actor: user.User{ID: "x", Role: user.Role("superuser")}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := svc.VisibleSubmissions(ctx, tt.actor, nil)
			if err != nil {
				t.Fatalf("VisibleSubmissions() failed: %v", err)
			}
			if len(subs) != tt.want {
				t.Errorf("VisibleSubmissions() returned %d, want %d", len(subs), tt.want)
			}
		})
	}
}
