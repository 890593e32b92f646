// Package authz decides what a user's role lets them do.
// Decisions are made against the user's current role, never against
// whatever role a token was minted with.
package authz

import "github.com/darasahq/darasa/core/user"

type Action string

const (
	ActionCourseView   Action = "course.view"
	ActionCourseCreate Action = "course.create"
	ActionCourseModify Action = "course.modify"
	ActionCourseDelete Action = "course.delete"

	ActionEnroll Action = "course.enroll"

	ActionAssignmentCreate Action = "assignment.create"
	ActionAssignmentModify Action = "assignment.modify"
	ActionAssignmentDelete Action = "assignment.delete"

	ActionSubmissionCreate Action = "submission.create"
	ActionSubmissionGrade  Action = "submission.grade"
)

// rolePermissions is the full permission matrix. A role missing from the
// matrix, or an action missing from a role's set, means "denied".
var rolePermissions = map[user.Role]map[Action]struct{}{
	user.RoleStudent: actionSet(
		ActionCourseView,
		ActionEnroll,
		ActionSubmissionCreate,
	),
	user.RoleTeacher: actionSet(
		ActionCourseView,
		ActionEnroll,
		ActionCourseCreate,
		ActionCourseModify,
		ActionCourseDelete,
		ActionAssignmentCreate,
		ActionAssignmentModify,
		ActionAssignmentDelete,
		ActionSubmissionGrade,
	),
	user.RoleAdmin: actionSet(
		ActionCourseView,
		ActionCourseCreate,
		ActionCourseModify,
		ActionCourseDelete,
		ActionEnroll,
		ActionAssignmentCreate,
		ActionAssignmentModify,
		ActionAssignmentDelete,
		ActionSubmissionGrade,
	),
}

func actionSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, action := range actions {
		set[action] = struct{}{}
	}
	return set
}

// Allowed reports whether the actor may perform the action.
// Inactive users and unknown roles are always denied.
func Allowed(actor user.User, action Action) bool {
	if !actor.Active() {
		return false
	}
	perms, ok := rolePermissions[actor.Role]
	if !ok {
		return false
	}
	_, ok = perms[action]
	return ok
}
