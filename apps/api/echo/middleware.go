package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// executiveMiddleware guards the decision and budget-management endpoints.
func executiveMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsExecutive {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware guards the tutor endorsement endpoint; executives pass too.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStaff || claims.IsExecutive {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
