package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
)

// AccessToken represents a signed session token along with its expiry.
// Session tokens are never stored server side; their validity is purely a
// function of the signature and the exp claim.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims is the payload of a session token.  UserID duplicates the
// subject as a number so clients decoding the token do not need to parse it.
type SessionClaims struct {
	UserID uint64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens with a process-wide
// secret.  It is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer whose tokens live ttlDays days.
func NewTokenIssuer(secret string, ttlDays int) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Issue builds and signs a token for userID expiring ttl from now.
func (t *TokenIssuer) Issue(userID uint64) (AccessToken, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks signature, algorithm and expiry against the current wall
// clock and returns the user id carried by the token.  Every failure wraps
// apperr.ErrUnauthenticated.
func (t *TokenIssuer) Verify(raw string) (uint64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty token: %w", apperr.ErrUnauthenticated)
	}
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}
	if !tok.Valid || claims.UserID == 0 {
		return 0, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, errors.New("token carries no user"))
	}
	return claims.UserID, nil
}
