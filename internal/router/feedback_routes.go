package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/handler"
)

// registerFeedback mounts /api/feedback. Ownership on update and delete is
// checked by the service, which also lets admins through.
func registerFeedback(api *echo.Group, h *handler.FeedbackHandler, acc access) {
	g := api.Group("/feedback")
	g.GET("", h.List, acc.token, acc.admin)
	g.GET("/my", h.Mine, acc.token)
	g.GET("/series/:id", h.BySeries, acc.cached)
	g.GET("/:id", h.Get, acc.cached)

	g.POST("", h.Add, acc.token)
	g.PUT("/:id", h.Update, acc.token)
	g.DELETE("/:id", h.Delete, acc.token)
}
