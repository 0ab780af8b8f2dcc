package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

// AttractionReader is implemented by *repository.AttractionRepo.
type AttractionReader interface {
	List(ctx context.Context, page int, keyword string) (repository.AttractionPage, error)
	GetByID(ctx context.Context, id uint64) (model.Attraction, error)
	MRTs(ctx context.Context) ([]string, error)
}

// AttractionHandler serves the public catalogue.  Responses carry no user
// data, which is what makes them safe to cache.
type AttractionHandler struct {
	Repo AttractionReader
}

func NewAttractionHandler(repo AttractionReader) *AttractionHandler {
	return &AttractionHandler{Repo: repo}
}

// List: GET /api/attractions?page=&keyword=
func (h *AttractionHandler) List(c echo.Context) error {
	page := 0
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(c, apperr.Validation("page must be a non-negative integer"))
		}
		page = n
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	res, err := h.Repo.List(ctx, page, c.QueryParam("keyword"))
	if err != nil {
		return writeError(c, apperr.Persistence("list attractions", err))
	}
	return c.JSON(http.StatusOK, res)
}

// Get: GET /api/attractions/:id
func (h *AttractionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return writeError(c, apperr.Validation("attraction id must be a positive integer"))
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	a, err := h.Repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAttractionNotFound) {
		return writeError(c, apperr.ErrNotFound)
	}
	if err != nil {
		return writeError(c, apperr.Persistence("get attraction", err))
	}
	return replyData(c, a)
}

// MRTs: GET /api/mrts
func (h *AttractionHandler) MRTs(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	names, err := h.Repo.MRTs(ctx)
	if err != nil {
		return writeError(c, apperr.Persistence("list mrts", err))
	}
	return replyData(c, names)
}
