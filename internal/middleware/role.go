package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// RequireRole enforces that the authenticated viewer currently holds one
// of allowed. The role is read from storage on every request through the
// gate, never from the token. It must run after JWTAuth.
func RequireRole(gate *service.Gate, allowed model.RoleSet) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := ViewerID(c)
			if !ok {
				return apperr.Unauthenticated("missing bearer token")
			}
			role, err := gate.Authorize(c.Request().Context(), id, allowed)
			if err != nil {
				return err
			}
			c.Set(RoleKey, role)
			return next(c)
		}
	}
}
