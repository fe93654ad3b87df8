package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/handler"
)

// registerSeries mounts the series catalog and the country list. Static
// segments (featured, search, genres) are matched before /:id.
func registerSeries(api *echo.Group, h *handler.SeriesHandler, acc access) {
	api.GET("/countries", h.Countries, acc.cached)

	g := api.Group("/series")
	g.GET("", h.List, acc.cached)
	g.GET("/featured", h.Featured, acc.cached)
	g.GET("/search", h.Search, acc.cached)
	g.GET("/genres", h.Genres, acc.cached)
	g.GET("/genre/:genre", h.ByGenre, acc.cached)
	g.GET("/:id", h.Detail, acc.cached)

	g.POST("", h.Create, acc.token, acc.staff)
	g.PUT("/:id", h.Update, acc.token, acc.staff)
	g.DELETE("/:id", h.Delete, acc.token, acc.admin)
}

// registerEpisodes mounts /api/episodes. The progress route names the
// episode :id so it shares the parameter node with /:id.
func registerEpisodes(api *echo.Group, h *handler.EpisodeHandler, acc access) {
	g := api.Group("/episodes")
	g.GET("/series/:seriesId", h.BySeries, acc.cached)
	g.GET("/continue/watching", h.ContinueWatching, acc.token)
	g.GET("/:id", h.Get, acc.cached)

	g.POST("", h.Create, acc.token, acc.staff)
	g.PUT("/:id", h.Update, acc.token, acc.staff)
	g.DELETE("/:id", h.Delete, acc.token, acc.admin)
	g.POST("/:id/:seriesId/progress", h.Progress, acc.token)
}
