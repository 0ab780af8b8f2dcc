package middleware // reusable HTTP middleware for the API routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
)

// TokenVerifier is implemented by *utils.TokenIssuer.
type TokenVerifier interface {
	Verify(raw string) (uint64, error)
}

// JWTAuth returns an Echo middleware that requires a valid Bearer session
// token.  The verified user id is stored under UserIDKey.  Missing or
// invalid tokens are answered with 403 and the standard error body; the
// wrapped handler never runs.
func JWTAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request())
			if !ok {
				return unauthenticated(c, apperr.ErrUnauthenticated)
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				return unauthenticated(c, err)
			}
			c.Set(UserIDKey, id)
			return next(c)
		}
	}
}

// OptionalAuth stores the user id when a valid token is present and lets
// anonymous or badly authenticated requests through unchanged.
func OptionalAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c.Request()); ok {
				if id, err := tokens.Verify(raw); err == nil {
					c.Set(UserIDKey, id)
				}
			}
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(auth[len(prefix):])
	return raw, raw != ""
}

func unauthenticated(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), echo.Map{
		"error":   true,
		"code":    apperr.Code(err),
		"message": apperr.Message(err),
	})
}
