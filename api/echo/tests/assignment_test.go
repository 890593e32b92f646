package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/darasahq/darasa/api/echo"
	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_assignmentApi_create(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "", user.RoleTeacher, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)

	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "An introduction", &owner.ID)
	due := time.Now().Add(7 * 24 * time.Hour).UTC()

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students cannot create assignments", token: getToken(t, student),
			body:     marchallObj(t, assignment.NewAssignment{CourseID: crs.ID, Title: "Exercise 1", DueDate: &due}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", token: getToken(t, owner), wantCode: http.StatusNotFound,
			// an empty course_id never resolves to a course
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "title required", token: getToken(t, owner),
			body:     marchallObj(t, assignment.NewAssignment{CourseID: crs.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": reqMsg}),
		},
		{
			name: "unknown course", token: getToken(t, owner),
			body:     marchallObj(t, assignment.NewAssignment{CourseID: "b74s", Title: "Exercise 1", DueDate: &due}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "non-owner teacher cannot create", token: getToken(t, rival),
			body:     marchallObj(t, assignment.NewAssignment{CourseID: crs.ID, Title: "Exercise 1", DueDate: &due}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "owner creates an assignment", token: getToken(t, owner), wantCode: http.StatusCreated,
			body: marchallObj(t, assignment.NewAssignment{CourseID: crs.ID, Title: "Exercise 1", Description: "Write a parser", DueDate: &due}),
		},
		{
			name: "admin creates an assignment", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, assignment.NewAssignment{CourseID: crs.ID, Title: "Exercise 2", DueDate: &due}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/assignments"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData assignment.Assignment
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.CourseID != crs.ID {
					t.Errorf("failed! course_id = %v; want %v", respData.CourseID, crs.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assignmentApi_query(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, true)

	crs1 := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacher.ID)
	crs2 := testutil.CreateCourse(t, crsRepo, "Advanced Go", "", &teacher.ID)

	now := time.Now().UTC()
	asg1 := testutil.CreateAssignment(t, asgRepo, crs1.ID, "Exercise 1", now.Add(24*time.Hour))
	asg2 := testutil.CreateAssignment(t, asgRepo, crs1.ID, "Exercise 2", now.Add(48*time.Hour))
	project := testutil.CreateAssignment(t, asgRepo, crs2.ID, "Final project", now.Add(14*24*time.Hour))
	reading := testutil.CreateAssignment(t, asgRepo, crs2.ID, "Reading list", time.Time{}) // no deadline

	tests := []httpTest{
		{name: "auth required", path: "/v1/assignments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students see all assignments", path: "/v1/assignments", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, asg1, asg2, project, reading),
		},
		{
			name: "filter by course", path: "/v1/assignments?course_id=" + crs1.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, asg1, asg2),
		},
		{
			name: "search=project", path: "/v1/assignments?search=project", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, project),
		},
		{
			name: "retrieve", path: "/v1/assignments/" + asg1.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, asg1),
		},
		{
			name: "retrieve unknown", path: "/v1/assignments/b74s", token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assignmentApi_updateDestroy(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "", user.RoleTeacher, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)

	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &owner.ID)
	due := time.Now().Add(24 * time.Hour).UTC()
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", due)
	doomed := testutil.CreateAssignment(t, asgRepo, crs.ID, "Doomed", due)

	newDue := due.Add(48 * time.Hour)
	tests := []httpTest{
		{
			name: "non-owner teacher cannot update", method: http.MethodPut, path: "/v1/assignments/" + asg.ID,
			token: getToken(t, rival), body: marchallObj(t, assignment.UpdateAssignment{Title: "Mine now"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "owner extends the deadline", method: http.MethodPut, path: "/v1/assignments/" + asg.ID,
			token: getToken(t, owner), body: marchallObj(t, assignment.UpdateAssignment{DueDate: &newDue}),
			wantCode: http.StatusOK,
		},
		{
			name: "non-owner teacher cannot delete", method: http.MethodDelete, path: "/v1/assignments/" + doomed.ID,
			token: getToken(t, rival), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admin deletes an assignment", method: http.MethodDelete, path: "/v1/assignments/" + doomed.ID,
			token: getToken(t, admin), wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			switch tt.name {
			case "owner extends the deadline":
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData assignment.Assignment
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.DueDate == nil || !respData.DueDate.Equal(newDue) {
					t.Errorf("failed! due_date = %v; want %v", respData.DueDate, newDue)
				}
			case "admin deletes an assignment":
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				if _, err := asgRepo.GetByID(context.Background(), doomed.ID); err != assignment.ErrNotFound {
					t.Errorf("GetByID() error = %v, want %v", err, assignment.ErrNotFound)
				}
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_assignmentApi_submit(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "Outsider", "outsider", "outsider@test.cd", "", user.RoleStudent, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)

	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacher.ID)
	testutil.CreateEnrollment(t, crsRepo, crs.ID, student.ID)
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", time.Now().Add(24*time.Hour))

	tests := []httpTest{
		{
			name: "auth required", path: "/v1/assignments/" + asg.ID + "/submissions",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "teachers cannot submit", path: "/v1/assignments/" + asg.ID + "/submissions", token: getToken(t, teacher),
			body:     marchallObj(t, echoapi.SubmitRequest{Content: "my answer"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admins cannot submit", path: "/v1/assignments/" + asg.ID + "/submissions", token: getToken(t, admin),
			body:     marchallObj(t, echoapi.SubmitRequest{Content: "my answer"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "content required", path: "/v1/assignments/" + asg.ID + "/submissions", token: getToken(t, student),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"content": reqMsg}),
		},
		{
			name: "unknown assignment", path: "/v1/assignments/b74s/submissions", token: getToken(t, student),
			body:     marchallObj(t, echoapi.SubmitRequest{Content: "my answer"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
		},
		{
			name: "not enrolled", path: "/v1/assignments/" + asg.ID + "/submissions", token: getToken(t, outsider),
			body:     marchallObj(t, echoapi.SubmitRequest{Content: "my answer"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: assignment.ErrNotEnrolled.Error()}),
		},
		{
			name: "enrolled student submits", path: "/v1/assignments/" + asg.ID + "/submissions", token: getToken(t, student),
			body:     marchallObj(t, echoapi.SubmitRequest{Content: "my answer"}),
			wantCode: http.StatusCreated,
		},
	}

	var firstID string
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData assignment.Submission
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.StudentID != student.ID {
					t.Errorf("failed! student_id = %v; want %v", respData.StudentID, student.ID)
				}
				firstID = respData.ID
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// resubmitting lands on the same row with fresh content
	t.Run("resubmission replaces content", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions",
			getToken(t, student), marchallObj(t, echoapi.SubmitRequest{Content: "my better answer"}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		var respData assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Errorf("json.Unmarshal() failed! err %v", err)
		}
		if respData.ID != firstID {
			t.Errorf("failed! id = %v; want %v", respData.ID, firstID)
		}
		if respData.Content != "my better answer" {
			t.Errorf("failed! content = %v; want my better answer", respData.Content)
		}

		count, err := asgRepo.CountSubmissions(context.Background(), &assignment.SubmissionFilter{AssignmentID: asg.ID})
		if err != nil {
			t.Fatalf("CountSubmissions() failed: %v", err)
		}
		if count != 1 {
			t.Errorf("failed! submission count = %d; want 1", count)
		}
	})
}

func Test_assignmentApi_grade(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "", user.RoleTeacher, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "", user.RoleTeacher, true)

	crs := testutil.CreateCourse(t, crsRepo, "Go 101", "", &owner.ID)
	testutil.CreateEnrollment(t, crsRepo, crs.ID, student.ID)
	asg := testutil.CreateAssignment(t, asgRepo, crs.ID, "Exercise 1", time.Now().Add(24*time.Hour))
	sub := testutil.CreateSubmission(t, asgRepo, asg.ID, student.ID, "my answer")

	grade := func(g int) *int { return &g }
	tests := []httpTest{
		{
			name: "students cannot grade", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, student),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(100)}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "non-owner teacher cannot grade", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, rival),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(100)}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown submission", path: "/v1/submissions/b74s/grade", token: getToken(t, owner),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(100)}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "submission not found"}),
		},
		{
			name: "grade required", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, owner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grade": reqMsg}),
		},
		{
			name: "grade out of range", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, owner),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(101)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grade": "grade must be 100 or less"}),
		},
		{
			name: "owner grades", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, owner),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(85), Feedback: "Good work"}),
			wantCode: http.StatusOK,
		},
		{
			// regrading is allowed
			name: "owner adjusts the grade", path: "/v1/submissions/" + sub.ID + "/grade", token: getToken(t, owner),
			body:     marchallObj(t, assignment.GradeSubmission{Grade: grade(90), Feedback: "Even better on review"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData assignment.Submission
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if !respData.IsGraded() {
					t.Fatal("failed! expected a graded submission")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	refreshed, err := asgRepo.GetSubmissionByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetSubmissionByID() failed: %v", err)
	}
	if refreshed.Grade == nil || *refreshed.Grade != 90 {
		t.Errorf("failed! grade = %v; want 90", refreshed.Grade)
	}
	if refreshed.Feedback != "Even better on review" {
		t.Errorf("failed! feedback = %q", refreshed.Feedback)
	}
}

func Test_assignmentApi_submissions(t *testing.T) {
	app := setup(t)

	studentA := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, true)
	studentB := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.cd", "", user.RoleStudent, true)
	teacher1 := testutil.CreateUser(t, usrRepo, "Prof One", "prof1", "prof1@test.cd", "", user.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Prof Two", "prof2", "prof2@test.cd", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)

	crs1 := testutil.CreateCourse(t, crsRepo, "Go 101", "", &teacher1.ID)
	crs2 := testutil.CreateCourse(t, crsRepo, "Advanced Go", "", &teacher2.ID)
	testutil.CreateEnrollment(t, crsRepo, crs1.ID, studentA.ID)
	testutil.CreateEnrollment(t, crsRepo, crs1.ID, studentB.ID)
	testutil.CreateEnrollment(t, crsRepo, crs2.ID, studentA.ID)

	due := time.Now().Add(24 * time.Hour)
	asg1 := testutil.CreateAssignment(t, asgRepo, crs1.ID, "Exercise 1", due)
	asg2 := testutil.CreateAssignment(t, asgRepo, crs2.ID, "Final project", due)

	subA1 := testutil.CreateSubmission(t, asgRepo, asg1.ID, studentA.ID, "alice's answer", 80)
	subB1 := testutil.CreateSubmission(t, asgRepo, asg1.ID, studentB.ID, "bob's answer")
	subA2 := testutil.CreateSubmission(t, asgRepo, asg2.ID, studentA.ID, "alice's project")

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: "/v1/submissions",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "admin sees all submissions", method: http.MethodGet, path: "/v1/submissions",
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, subA1, subB1, subA2),
		},
		{
			name: "teacher sees their courses' submissions", method: http.MethodGet, path: "/v1/submissions",
			token: getToken(t, teacher1), wantCode: http.StatusOK, wantData: marchallList(t, subA1, subB1),
		},
		{
			name: "student sees their own submissions", method: http.MethodGet, path: "/v1/submissions",
			token: getToken(t, studentA), wantCode: http.StatusOK, wantData: marchallList(t, subA1, subA2),
		},
		{
			name: "filter graded", method: http.MethodGet, path: "/v1/submissions?graded=true",
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, subA1),
		},
		{
			name: "filter ungraded", method: http.MethodGet, path: "/v1/submissions?graded=false",
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, subB1, subA2),
		},
		{
			name: "student retrieves their submission", method: http.MethodGet, path: "/v1/submissions/" + subA1.ID,
			token: getToken(t, studentA), wantCode: http.StatusOK, wantData: marchallObj(t, subA1),
		},
		{
			// submission ids are not probeable
			name: "someone else's submission", method: http.MethodGet, path: "/v1/submissions/" + subA1.ID,
			token: getToken(t, studentB), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "other teacher's course submission", method: http.MethodGet, path: "/v1/submissions/" + subA1.ID,
			token: getToken(t, teacher2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// Test_api_courseLifecycle walks the full happy path: a teacher opens a
// course, a student enrolls and submits work, the teacher grades it.
func Test_api_courseLifecycle(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "Outsider", "outsider", "outsider@test.cd", "", user.RoleStudent, true)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	do := func(t *testing.T, method, path, token string, body []byte, wantCode int) []byte {
		t.Helper()
		req, rec := newAuthRequest(method, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("%s %s failed! code = %v; wantCode %v; body %s", method, path, rec.Code, wantCode, rec.Body.String())
		}
		return rec.Body.Bytes()
	}

	// the teacher opens a course
	var crs course.Course
	raw := do(t, http.MethodPost, "/v1/courses", teacherToken,
		marchallObj(t, course.NewCourse{Title: "Go 101", Description: "An introduction"}), http.StatusCreated)
	if err := json.Unmarshal(raw, &crs); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}

	// the student enrolls; enrolling twice conflicts
	do(t, http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", studentToken, nil, http.StatusCreated)
	do(t, http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", studentToken, nil, http.StatusConflict)

	// the teacher posts an assignment
	var asg assignment.Assignment
	due := time.Now().Add(7 * 24 * time.Hour).UTC()
	raw = do(t, http.MethodPost, "/v1/assignments", teacherToken,
		marchallObj(t, assignment.NewAssignment{CourseID: crs.ID, Title: "Exercise 1", DueDate: &due}), http.StatusCreated)
	if err := json.Unmarshal(raw, &asg); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}

	// the student submits, then resubmits onto the same row
	var sub assignment.Submission
	raw = do(t, http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions", studentToken,
		marchallObj(t, echoapi.SubmitRequest{Content: "draft"}), http.StatusCreated)
	if err := json.Unmarshal(raw, &sub); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	var resub assignment.Submission
	raw = do(t, http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions", studentToken,
		marchallObj(t, echoapi.SubmitRequest{Content: "final answer"}), http.StatusCreated)
	if err := json.Unmarshal(raw, &resub); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resub.ID != sub.ID {
		t.Fatalf("resubmission landed on a new row: %v != %v", resub.ID, sub.ID)
	}

	// an outsider cannot submit
	do(t, http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions", getToken(t, outsider),
		marchallObj(t, echoapi.SubmitRequest{Content: "sneaky"}), http.StatusForbidden)

	// the teacher grades the submission
	grade := 85
	var graded assignment.Submission
	raw = do(t, http.MethodPut, "/v1/submissions/"+sub.ID+"/grade", teacherToken,
		marchallObj(t, assignment.GradeSubmission{Grade: &grade, Feedback: "Solid"}), http.StatusOK)
	if err := json.Unmarshal(raw, &graded); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if graded.Grade == nil || *graded.Grade != grade {
		t.Fatalf("failed! grade = %v; want %d", graded.Grade, grade)
	}
	if graded.Content != "final answer" {
		t.Fatalf("failed! content = %q; want final answer", graded.Content)
	}

	// the student's profile reflects the activity
	var profile echoapi.ProfileResponse
	raw = do(t, http.MethodGet, "/v1/users/me", studentToken, nil, http.StatusOK)
	if err := json.Unmarshal(raw, &profile); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if profile.EnrollmentCount != 1 || profile.SubmissionCount != 1 {
		t.Fatalf("failed! enrollments = %d, submissions = %d; want 1, 1", profile.EnrollmentCount, profile.SubmissionCount)
	}
	if profile.AverageGrade == nil || *profile.AverageGrade != 85 {
		t.Fatalf("failed! average_grade = %v; want 85", profile.AverageGrade)
	}
}
