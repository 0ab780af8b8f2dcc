package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/service"
)

// BookingManager is implemented by *service.BookingService.
type BookingManager interface {
	Set(ctx context.Context, userID uint64, in service.BookingInput) error
	Get(ctx context.Context, userID uint64) (*model.BookingView, error)
	Clear(ctx context.Context, userID uint64) error
}

// BookingHandler serves /api/booking.  All routes sit behind JWTAuth.
type BookingHandler struct {
	Bookings BookingManager
}

func NewBookingHandler(b BookingManager) *BookingHandler { return &BookingHandler{Bookings: b} }

// Get: GET /api/booking.  {"data": null} when nothing is staged.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	v, err := h.Bookings.Get(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return replyData(c, v)
}

// Set: POST /api/booking.
func (h *BookingHandler) Set(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.BookingInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Bookings.Set(ctx, uid, req); err != nil {
		return writeError(c, err)
	}
	return replyOK(c)
}

// Delete: DELETE /api/booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Bookings.Clear(ctx, uid); err != nil {
		return writeError(c, err)
	}
	return replyOK(c)
}
