package middleware

// Context keys shared by the auth middleware and the handlers. JWTAuth
// stores the verified viewer id and claims; RequireRole stores the role
// re-read from storage.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/utils"
)

const (
	ViewerIDKey = "viewer_id"
	ClaimsKey   = "claims"
	RoleKey     = "role"
)

// ViewerID returns the authenticated viewer id, if any.
func ViewerID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ViewerIDKey).(uint64)
	return id, ok && id != 0
}

// Claims returns the verified token claims, if any.
func Claims(c echo.Context) (*utils.SessionClaims, bool) {
	cl, ok := c.Get(ClaimsKey).(*utils.SessionClaims)
	return cl, ok
}

// CurrentRole returns the role RequireRole looked up for this request.
func CurrentRole(c echo.Context) (model.Role, bool) {
	r, ok := c.Get(RoleKey).(model.Role)
	return r, ok
}

// subject identifies the caller for rate-limit keys and access logs.
// Anonymous callers are "anon".
func subject(c echo.Context) string {
	if id, ok := ViewerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
