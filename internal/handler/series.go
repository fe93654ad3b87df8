package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// SeriesHandler serves the public catalog and the staff-only series writes.
type SeriesHandler struct {
	catalog *service.CatalogService
}

func NewSeriesHandler(catalog *service.CatalogService) *SeriesHandler {
	return &SeriesHandler{catalog: catalog}
}

type seriesReq struct {
	Name             string      `json:"name" validate:"required,min=1,max=50"`
	Description      string      `json:"description" validate:"omitempty,max=2000"`
	ReleaseDate      *model.Date `json:"releaseDate"`
	CountryOfRelease string      `json:"countryOfRelease" validate:"required,max=30"`
	PosterURL        string      `json:"posterUrl" validate:"omitempty,url,max=255"`
	BannerURL        string      `json:"bannerUrl" validate:"omitempty,url,max=255"`
	Genres           []string    `json:"genres" validate:"omitempty,max=20,dive,required,max=50,genre"`
	Dubbing          []string    `json:"dubbing" validate:"omitempty,max=20,dive,required,max=30"`
	Subtitles        []string    `json:"subtitles" validate:"omitempty,max=20,dive,required,max=30"`
}

// seriesPatchReq has no numberOfEpisodes: the count is derived.
type seriesPatchReq struct {
	Name             *string     `json:"name" validate:"omitempty,min=1,max=50"`
	Description      *string     `json:"description" validate:"omitempty,max=2000"`
	ReleaseDate      *model.Date `json:"releaseDate"`
	CountryOfRelease *string     `json:"countryOfRelease" validate:"omitempty,min=1,max=30"`
	PosterURL        *string     `json:"posterUrl" validate:"omitempty,url,max=255"`
	BannerURL        *string     `json:"bannerUrl" validate:"omitempty,url,max=255"`
	Genres           *[]string   `json:"genres" validate:"omitempty,max=20,dive,required,max=50,genre"`
	Dubbing          *[]string   `json:"dubbing" validate:"omitempty,max=20,dive,required,max=30"`
	Subtitles        *[]string   `json:"subtitles" validate:"omitempty,max=20,dive,required,max=30"`
}

type seriesResp struct {
	Message string       `json:"message"`
	Series  model.Series `json:"series"`
}

func (h *SeriesHandler) List(c echo.Context) error {
	out, err := h.catalog.ListSeries(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeriesHandler) Featured(c echo.Context) error {
	out, err := h.catalog.Featured(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Search matches ?q= against name and description.
func (h *SeriesHandler) Search(c echo.Context) error {
	out, err := h.catalog.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeriesHandler) ByGenre(c echo.Context) error {
	out, err := h.catalog.ByGenre(c.Request().Context(), c.Param("genre"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeriesHandler) Genres(c echo.Context) error {
	out, err := h.catalog.Genres(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeriesHandler) Countries(c echo.Context) error {
	out, err := h.catalog.Countries(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Detail returns one series with its tags, episodes and rating summary.
func (h *SeriesHandler) Detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.catalog.Detail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeriesHandler) Create(c echo.Context) error {
	var req seriesReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.catalog.CreateSeries(c.Request().Context(), model.NewSeries{
		Name:             req.Name,
		Description:      req.Description,
		ReleaseDate:      req.ReleaseDate,
		CountryOfRelease: req.CountryOfRelease,
		PosterURL:        req.PosterURL,
		BannerURL:        req.BannerURL,
		Genres:           req.Genres,
		Dubbing:          req.Dubbing,
		Subtitles:        req.Subtitles,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, seriesResp{Message: "series created", Series: s})
}

func (h *SeriesHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req seriesPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.catalog.UpdateSeries(c.Request().Context(), id, model.SeriesPatch{
		Name:             req.Name,
		Description:      req.Description,
		ReleaseDate:      req.ReleaseDate,
		CountryOfRelease: req.CountryOfRelease,
		PosterURL:        req.PosterURL,
		BannerURL:        req.BannerURL,
		Genres:           req.Genres,
		Dubbing:          req.Dubbing,
		Subtitles:        req.Subtitles,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, seriesResp{Message: "series updated", Series: s})
}

// Delete removes a series; episodes, tags, reviews and watch history go
// with it.
func (h *SeriesHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.catalog.DeleteSeries(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "series deleted", "deleted": d})
}
