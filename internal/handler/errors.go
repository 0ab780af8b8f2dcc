package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
)

// errorBody is the JSON shape of every failed request.
func errorBody(err error) echo.Map {
	return echo.Map{
		"error":   true,
		"code":    apperr.Code(err),
		"message": apperr.Message(err),
	}
}

// writeError maps err through apperr and writes it.  Server faults are
// logged with their full chain since the client only sees a generic text.
func writeError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, errorBody(err))
}

func badBody(c echo.Context) error {
	return writeError(c, apperr.Validation("request body is not valid JSON"))
}
