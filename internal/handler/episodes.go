package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// EpisodeHandler serves episodes and watch progress.
type EpisodeHandler struct {
	catalog *service.CatalogService
	engage  *service.EngagementService
}

func NewEpisodeHandler(catalog *service.CatalogService, engage *service.EngagementService) *EpisodeHandler {
	return &EpisodeHandler{catalog: catalog, engage: engage}
}

type episodeReq struct {
	SeriesID         uint64 `json:"seriesId" validate:"required"`
	EpisodeNo        int    `json:"episodeNo" validate:"required,min=1"`
	Title            string `json:"title" validate:"required,max=100"`
	DurationMin      int    `json:"durationMin" validate:"required,min=1,max=600"`
	VideoURL         string `json:"videoUrl" validate:"omitempty,url,max=255"`
	ThumbnailURL     string `json:"thumbnailUrl" validate:"omitempty,url,max=255"`
	TechInterruption bool   `json:"techInterruption"`
}

type episodePatchReq struct {
	EpisodeNo        *int    `json:"episodeNo" validate:"omitempty,min=1"`
	Title            *string `json:"title" validate:"omitempty,min=1,max=100"`
	DurationMin      *int    `json:"durationMin" validate:"omitempty,min=1,max=600"`
	VideoURL         *string `json:"videoUrl" validate:"omitempty,url,max=255"`
	ThumbnailURL     *string `json:"thumbnailUrl" validate:"omitempty,url,max=255"`
	TechInterruption *bool   `json:"techInterruption"`
}

// progressReq keeps Progress a pointer so 0 passes "required".
type progressReq struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

type episodeResp struct {
	Message string        `json:"message"`
	Episode model.Episode `json:"episode"`
}

func (h *EpisodeHandler) BySeries(c echo.Context) error {
	seriesID, err := pathID(c, "seriesId")
	if err != nil {
		return err
	}
	out, err := h.catalog.EpisodesBySeries(c.Request().Context(), seriesID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *EpisodeHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ep, err := h.catalog.Episode(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ep)
}

func (h *EpisodeHandler) Create(c echo.Context) error {
	var req episodeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ep, err := h.catalog.CreateEpisode(c.Request().Context(), model.Episode{
		SeriesID:         req.SeriesID,
		EpisodeNo:        req.EpisodeNo,
		Title:            req.Title,
		DurationMin:      req.DurationMin,
		VideoURL:         req.VideoURL,
		ThumbnailURL:     req.ThumbnailURL,
		TechInterruption: req.TechInterruption,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, episodeResp{Message: "episode created", Episode: ep})
}

func (h *EpisodeHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req episodePatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ep, err := h.catalog.UpdateEpisode(c.Request().Context(), id, model.EpisodePatch{
		EpisodeNo:        req.EpisodeNo,
		Title:            req.Title,
		DurationMin:      req.DurationMin,
		VideoURL:         req.VideoURL,
		ThumbnailURL:     req.ThumbnailURL,
		TechInterruption: req.TechInterruption,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, episodeResp{Message: "episode updated", Episode: ep})
}

func (h *EpisodeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ep, err := h.catalog.DeleteEpisode(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, episodeResp{Message: "episode deleted", Episode: ep})
}

// Progress records how far the caller got through an episode. The
// episode id is the first path segment, the series id the second.
func (h *EpisodeHandler) Progress(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	episodeID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seriesID, err := pathID(c, "seriesId")
	if err != nil {
		return err
	}
	var req progressReq
	if err := bind(c, &req); err != nil {
		return err
	}
	wh, err := h.engage.RecordProgress(c.Request().Context(), viewer, episodeID, seriesID, *req.Progress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "progress saved", "history": wh})
}

func (h *EpisodeHandler) ContinueWatching(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	out, err := h.engage.ContinueWatching(c.Request().Context(), viewer)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
