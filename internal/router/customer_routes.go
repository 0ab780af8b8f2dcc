package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// RegisterCustomer registers the signed-in endpoints: the staged booking
// and checkout.  Every route requires a valid session token.  Order
// submission is rate limited since each call may reach the card gateway.
func RegisterCustomer(api *echo.Group, b *handler.BookingHandler, o *handler.OrderHandler, tokens middleware.TokenVerifier, limit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(tokens)

	api.GET("/booking", b.Get, auth)
	api.POST("/booking", b.Set, auth)
	api.DELETE("/booking", b.Delete, auth)

	// auth first so the limiter can key on the user
	api.POST("/orders", o.Submit, auth, limit)
	api.GET("/order/:orderNumber", o.Get, auth)
}
