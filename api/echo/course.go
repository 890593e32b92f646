package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/authz"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type courseApi struct {
	svc      course.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query, authzMiddleware(api.userSvc, authz.ActionCourseView))
	cg.POST("", api.create, authzMiddleware(api.userSvc, authz.ActionCourseCreate))
	cg.GET("/:id", api.retrieve, authzMiddleware(api.userSvc, authz.ActionCourseView))
	cg.PUT("/:id", api.update, authzMiddleware(api.userSvc, authz.ActionCourseModify))
	cg.DELETE("/:id", api.destroy, authzMiddleware(api.userSvc, authz.ActionCourseDelete))
	cg.POST("/:id/enroll", api.enroll, authzMiddleware(api.userSvc, authz.ActionEnroll))

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.queryEnrollments, authzMiddleware(api.userSvc, authz.ActionCourseView))
	eg.GET("/:id", api.retrieveEnrollment, authzMiddleware(api.userSvc, authz.ActionCourseView))
	eg.DELETE("/:id", api.unenroll, authzMiddleware(api.userSvc, authz.ActionCourseView))
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
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

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
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

	if err = api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// enroll enrolls the authenticated student into the course. Admins may
// enroll any student by passing student_id.
func (api *courseApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data EnrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}

	student := ctxUsr
	if data.StudentID != "" && data.StudentID != ctxUsr.ID {
		if !ctxUsr.IsAdmin() {
			return errHttpForbidden
		}
		student, err = api.userSvc.GetByID(ctx.Request().Context(), data.StudentID)
		if err != nil {
			return err
		}
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), student)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(course.EnrollmentFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Enrollment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	enrs, err := api.svc.VisibleEnrollments(ctx.Request().Context(), ctxUsr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

// canSeeEnrollment applies the same visibility rules as VisibleEnrollments
// to a single record.
func (api *courseApi) canSeeEnrollment(ctx echo.Context, actor user.User, enr course.Enrollment) (bool, error) {
	switch {
	case actor.IsAdmin():
		return true, nil
	case actor.IsStudent():
		return enr.StudentID == actor.ID, nil
	case actor.IsTeacher():
		crs, err := api.svc.GetByID(ctx.Request().Context(), enr.CourseID)
		if err != nil {
			return false, err
		}
		return crs.CreatedBy != nil && *crs.CreatedBy == actor.ID, nil
	}
	return false, nil
}

func (api *courseApi) retrieveEnrollment(ctx echo.Context) error {
	enr, err := api.svc.GetEnrollmentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	visible, err := api.canSeeEnrollment(ctx, ctxUsr, enr)
	if err != nil {
		return err
	}
	if !visible {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, enr)
}

// unenroll drops an enrollment. Allowed for the enrolled student and admins.
func (api *courseApi) unenroll(ctx echo.Context) error {
	enr, err := api.svc.GetEnrollmentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || enr.StudentID == ctxUsr.ID) {
		return errHttpForbidden
	}

	if err = api.svc.Unenroll(ctx.Request().Context(), enr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollRequest struct {
	StudentID string `json:"student_id"`
}
