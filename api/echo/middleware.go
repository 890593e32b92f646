package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/authz"
	"github.com/darasahq/darasa/core/user"
)

// authzMiddleware denies the request unless the authenticated user's
// current role allows the action. The user is re-read from storage, so a
// stale token cannot be used to keep privileges that were revoked.
func authzMiddleware(svc user.Service, action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !authz.Allowed(usr, action) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.Active() && usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
