package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/handler"
)

// registerAuth mounts /api/auth. Register and login sit behind the
// stricter auth limiter; the rest need a session token.
func registerAuth(api *echo.Group, h *handler.AuthHandler, acc access, limit echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Register, limit)
	g.POST("/login", h.Login, limit)

	g.GET("/me", h.Me, acc.token)
	g.PUT("/profile", h.UpdateProfile, acc.token)
	g.PUT("/password", h.ChangePassword, acc.token)
	g.DELETE("/account", h.DeleteAccount, acc.token)
}
