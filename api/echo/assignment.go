package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/authz"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type assignmentApi struct {
	svc       assignment.Service
	courseSvc course.Service
	userSvc   user.Service
	validate  *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{
		svc:       deps.AssignmentSvc,
		courseSvc: deps.CourseSvc,
		userSvc:   deps.UserSvc,
		validate:  deps.Validate,
	}

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.query, authzMiddleware(api.userSvc, authz.ActionCourseView))
	ag.POST("", api.create, authzMiddleware(api.userSvc, authz.ActionAssignmentCreate))
	ag.GET("/:id", api.retrieve, authzMiddleware(api.userSvc, authz.ActionCourseView))
	ag.PUT("/:id", api.update, authzMiddleware(api.userSvc, authz.ActionAssignmentModify))
	ag.DELETE("/:id", api.destroy, authzMiddleware(api.userSvc, authz.ActionAssignmentDelete))
	ag.POST("/:id/submissions", api.submit, authzMiddleware(api.userSvc, authz.ActionSubmissionCreate))

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.querySubmissions, authzMiddleware(api.userSvc, authz.ActionCourseView))
	sg.GET("/:id", api.retrieveSubmission, authzMiddleware(api.userSvc, authz.ActionCourseView))
	sg.PUT("/:id/grade", api.grade, authzMiddleware(api.userSvc, authz.ActionSubmissionGrade))
}

// courseEditable ensures the actor may manage assignments of the
// assignment's course: teachers only in courses they created.
func (api *assignmentApi) courseEditable(ctx echo.Context, courseID string) error {
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !crs.EditableBy(ctxUsr) {
		return errHttpForbidden
	}
	return nil
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := api.courseEditable(ctx, data.CourseID); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	filter := new(assignment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assignment.Assignment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	asgs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.courseEditable(ctx, asg.CourseID); err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	asg, err = api.svc.Update(ctx.Request().Context(), asg.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.courseEditable(ctx, asg.CourseID); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), asg.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), assignment.NewSubmission{
		AssignmentID: ctx.Param("id"),
		Content:      data.Content,
	}, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(assignment.SubmissionFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assignment.Submission{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.svc.VisibleSubmissions(ctx.Request().Context(), ctxUsr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// canSeeSubmission applies the same visibility rules as VisibleSubmissions
// to a single record.
func (api *assignmentApi) canSeeSubmission(ctx echo.Context, actor user.User, sub assignment.Submission) (bool, error) {
	switch {
	case actor.IsAdmin():
		return true, nil
	case actor.IsStudent():
		return sub.StudentID == actor.ID, nil
	case actor.IsTeacher():
		asg, err := api.svc.GetByID(ctx.Request().Context(), sub.AssignmentID)
		if err != nil {
			return false, err
		}
		crs, err := api.courseSvc.GetByID(ctx.Request().Context(), asg.CourseID)
		if err != nil {
			return false, err
		}
		return crs.CreatedBy != nil && *crs.CreatedBy == actor.ID, nil
	}
	return false, nil
}

func (api *assignmentApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmissionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	visible, err := api.canSeeSubmission(ctx, ctxUsr, sub)
	if err != nil {
		return err
	}
	if !visible {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	sub, err := api.svc.GetSubmissionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	asg, err := api.svc.GetByID(ctx.Request().Context(), sub.AssignmentID)
	if err != nil {
		return err
	}
	if err = api.courseEditable(ctx, asg.CourseID); err != nil {
		return err
	}

	var data assignment.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}

	sub, err = api.svc.Grade(ctx.Request().Context(), sub.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

type SubmitRequest struct {
	Content string `json:"content"`
}
