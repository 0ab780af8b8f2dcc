package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// dbTimeout bounds handlers that only talk to MySQL.
const dbTimeout = 5 * time.Second

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentUser returns the id JWTAuth stored.  Routes without JWTAuth get
// ErrUnauthenticated.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperr.ErrUnauthenticated
	}
	return id, nil
}

func replyOK(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func replyData(c echo.Context, v any) error {
	return c.JSON(http.StatusOK, echo.Map{"data": v})
}
