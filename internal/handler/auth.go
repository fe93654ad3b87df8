package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// AuthHandler serves registration, login and the caller's own account.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	FirstName  string   `json:"firstName" validate:"required,min=2,max=30"`
	LastName   string   `json:"lastName" validate:"omitempty,max=30"`
	Email      string   `json:"email" validate:"required,email,max=50"`
	Password   string   `json:"password" validate:"required,password"`
	SeriesID   uint64   `json:"seriesId" validate:"required"`
	CountryID  uint64   `json:"countryId" validate:"required"`
	MonthlyFee *float64 `json:"monthlyFee" validate:"omitempty,gte=0,lte=1000"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileReq struct {
	FirstName      *string `json:"firstName" validate:"omitempty,min=2,max=30"`
	LastName       *string `json:"lastName" validate:"omitempty,max=30"`
	BillingStreet  *string `json:"billingStreet" validate:"omitempty,max=50"`
	BillingCity    *string `json:"billingCity" validate:"omitempty,max=30"`
	BillingZipcode *uint32 `json:"billingZipcode" validate:"omitempty,max=99999999"`
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

type sessionResp struct {
	Message string `json:"message"`
	service.Session
}

type registerResp struct {
	ViewerID uint64 `json:"viewerId"`
	sessionResp
}

type profileResp struct {
	Message string       `json:"message"`
	Viewer  model.Viewer `json:"viewer"`
}

// Register creates a customer account and signs the viewer in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.auth.Register(c.Request().Context(), model.Registration{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		SeriesID:   req.SeriesID,
		CountryID:  req.CountryID,
		MonthlyFee: req.MonthlyFee,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResp{
		ViewerID:    sess.Viewer.ID,
		sessionResp: sessionResp{Message: "registration successful", Session: sess},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp{Message: "login successful", Session: sess})
}

// Me returns the caller's profile as currently stored.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := viewerID(c)
	if err != nil {
		return err
	}
	v, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	id, err := viewerID(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.auth.UpdateProfile(c.Request().Context(), id, model.ViewerPatch{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		BillingStreet:  req.BillingStreet,
		BillingCity:    req.BillingCity,
		BillingZipcode: req.BillingZipcode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResp{Message: "profile updated", Viewer: v})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := viewerID(c)
	if err != nil {
		return err
	}
	var req passwordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	err = h.auth.ChangePassword(c.Request().Context(), id, service.PasswordChange{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{Message: "password changed"})
}

// DeleteAccount removes the caller together with their reviews and watch
// history.
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	id, err := viewerID(c)
	if err != nil {
		return err
	}
	if err := h.auth.DeleteAccount(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{Message: "account deleted"})
}
