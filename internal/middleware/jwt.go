package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/utils"
)

// JWTAuth validates a Bearer session token and stores the viewer id and
// claims on the context. Failures are returned as Unauthenticated errors
// for the central error handler to render.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return apperr.Unauthenticated("missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return apperr.Unauthenticated("invalid or expired token")
			}
			c.Set(ViewerIDKey, claims.ViewerID)
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// Identify records the viewer of a valid bearer token, if any, and never
// rejects. It runs ahead of the /api limiter so per-user bucket keys see
// the caller; JWTAuth still guards the protected routes.
func Identify(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ViewerIDKey, claims.ViewerID)
					c.Set(ClaimsKey, claims)
				}
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	scheme, raw, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return "", false
	}
	return raw, true
}
