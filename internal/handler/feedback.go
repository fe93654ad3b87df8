package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// FeedbackHandler serves series reviews.
type FeedbackHandler struct {
	engage *service.EngagementService
}

func NewFeedbackHandler(engage *service.EngagementService) *FeedbackHandler {
	return &FeedbackHandler{engage: engage}
}

type feedbackReq struct {
	SeriesID uint64 `json:"seriesId" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Text     string `json:"text" validate:"omitempty,max=2000"`
}

type feedbackPatchReq struct {
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Text   *string `json:"text" validate:"omitempty,max=2000"`
}

type feedbackResp struct {
	Message  string         `json:"message"`
	Feedback model.Feedback `json:"feedback"`
}

func (h *FeedbackHandler) Add(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	var req feedbackReq
	if err := bind(c, &req); err != nil {
		return err
	}
	fb, err := h.engage.AddFeedback(c.Request().Context(), viewer, service.NewFeedback{
		SeriesID: req.SeriesID,
		Rating:   req.Rating,
		Text:     req.Text,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "feedback added",
		"feedbackId": fb.ID,
		"feedback":   fb,
	})
}

// List is the admin listing, paged by ?page=&limit=.
func (h *FeedbackHandler) List(c echo.Context) error {
	page, limit := 1, service.DefaultPageLimit
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("limit", &limit).BindError(); err != nil {
		return apperr.Validation("page and limit must be integers")
	}
	out, err := h.engage.ListFeedback(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FeedbackHandler) Mine(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	out, err := h.engage.MyFeedback(c.Request().Context(), viewer)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FeedbackHandler) BySeries(c echo.Context) error {
	seriesID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.engage.SeriesFeedback(c.Request().Context(), seriesID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FeedbackHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fb, err := h.engage.Feedback(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fb)
}

// Update lets the author, or an admin, edit a review.
func (h *FeedbackHandler) Update(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req feedbackPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	fb, err := h.engage.UpdateFeedback(c.Request().Context(), viewer, id, model.FeedbackPatch{
		Rating: req.Rating,
		Text:   req.Text,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feedbackResp{Message: "feedback updated", Feedback: fb})
}

func (h *FeedbackHandler) Delete(c echo.Context) error {
	viewer, err := viewerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.engage.DeleteFeedback(c.Request().Context(), viewer, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{Message: "feedback deleted"})
}
