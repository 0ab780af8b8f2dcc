package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := echo.New()
	tokens := utils.NewTokenIssuer("s3cret", 7)
	RegisterRoutes(e, okPinger{})
	api := e.Group("/api")
	RegisterCustomer(api, handler.NewBookingHandler(nil), handler.NewOrderHandler(nil), tokens, passThrough)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/booking"},
		{http.MethodPost, "/api/booking"},
		{http.MethodDelete, "/api/booking"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/order/202501011200001234"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s without token: status %d, want 403", r.method, r.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
