package handler

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/service"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// Authenticator is implemented by *service.AuthService.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (uint64, error)
	Authenticate(ctx context.Context, email, password string) (uint64, error)
	Profile(ctx context.Context, userID uint64) (model.Profile, error)
}

// TokenIssuer is implemented by *utils.TokenIssuer.
type TokenIssuer interface {
	Issue(userID uint64) (utils.AccessToken, error)
}

// UserHandler serves /api/user and /api/user/auth.
type UserHandler struct {
	Auth   Authenticator
	Tokens TokenIssuer
}

func NewUserHandler(auth Authenticator, tokens TokenIssuer) *UserHandler {
	return &UserHandler{Auth: auth, Tokens: tokens}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register: POST /api/user.
func (h *UserHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := h.Auth.Register(ctx, req); err != nil {
		return writeError(c, err)
	}
	return replyOK(c)
}

// Login: PUT /api/user/auth.  Returns a session token.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	uid, err := h.Auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	tok, err := h.Tokens.Issue(uid)
	if err != nil {
		return writeError(c, err)
	}
	return replyData(c, echo.Map{"token": tok.Token})
}

// Me: GET /api/user/auth.  Anonymous callers, and tokens whose user no
// longer exists, get {"data": null}.
func (h *UserHandler) Me(c echo.Context) error {
	uid, signedIn := middleware.UserID(c)
	if !signedIn {
		return replyData(c, nil)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	p, err := h.Auth.Profile(ctx, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return replyData(c, nil)
	}
	if err != nil {
		return writeError(c, err)
	}
	return replyData(c, p)
}
