package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// RegisterRoutes registers routes outside /api.  /healthz is polled by
// load balancers and reports database reachability.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterUser registers registration, login and the current-user lookup.
// Login is rate limited; the lookup accepts anonymous callers and answers
// them with {"data": null}.
func RegisterUser(api *echo.Group, h *handler.UserHandler, tokens middleware.TokenVerifier, limit echo.MiddlewareFunc) {
	api.POST("/user", h.Register)
	api.PUT("/user/auth", h.Login, limit)
	api.GET("/user/auth", h.Me, middleware.OptionalAuth(tokens))
}

// RegisterPublic registers the attraction catalogue.  These responses are
// identical for every caller, so they are the only ones put behind the
// response cache.
func RegisterPublic(api *echo.Group, h *handler.AttractionHandler, cache echo.MiddlewareFunc) {
	api.GET("/attractions", h.List, cache)
	api.GET("/attractions/:id", h.Get, cache)
	api.GET("/mrts", h.MRTs, cache)
}
