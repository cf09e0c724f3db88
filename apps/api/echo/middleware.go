package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core/teacher"
)

// activeTeacherMiddleware rejects tokens of deactivated or deleted teachers.
func activeTeacherMiddleware(a *authenticator, svc *teacher.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			t, err := a.contextTeacher(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context teacher")
			}
			if !t.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}
