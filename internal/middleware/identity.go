package middleware

// identity.go holds the context key the auth middlewares write and the
// helpers handlers and the rate limiter use to read it back.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserIDKey is the echo.Context key holding the authenticated user id
// (uint64).  It is unset for anonymous requests.
const UserIDKey = "user_id"

// UserID returns the authenticated user id stored by JWTAuth or
// OptionalAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(UserIDKey).(uint64)
	return id, ok && id != 0
}

// identityOf renders the caller for rate-limit keys; "anon" when no token
// was verified.
func identityOf(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
