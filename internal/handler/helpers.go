package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/middleware"
)

// bind decodes the request into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(req)
}

// pathID reads a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	var id uint64
	if err := echo.PathParamsBinder(c).MustUint64(name, &id).BindError(); err != nil || id == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// viewerID is the authenticated caller. Routes using it sit behind JWTAuth.
func viewerID(c echo.Context) (uint64, error) {
	id, ok := middleware.ViewerID(c)
	if !ok {
		return 0, apperr.Unauthenticated("missing bearer token")
	}
	return id, nil
}

type message struct {
	Message string `json:"message"`
}
