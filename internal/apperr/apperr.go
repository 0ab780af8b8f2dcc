// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer. Services wrap one of the sentinels below; handlers translate
// them into a status code and a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidAttraction  = errors.New("invalid attraction")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPersistence        = errors.New("persistence failure")
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
)

// Validation returns an ErrValidation carrying a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage failure so callers can match ErrPersistence
// while the original driver error stays available to errors.As.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Code returns the stable code reported to API clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidAttraction):
		return "invalid_attraction"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrGatewayUnreachable):
		return "gateway_unreachable"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidAttraction),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusForbidden
	case errors.Is(err, ErrGatewayUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text shown to clients. Client errors expose the
// wrapped reason; server faults never leak driver details.
func Message(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		if errors.Is(err, ErrValidation) {
			if _, reason, ok := strings.Cut(err.Error(), ErrValidation.Error()+": "); ok {
				return reason
			}
		}
		for _, s := range []error{ErrInvalidAttraction, ErrNotFound, ErrDuplicateEmail, ErrInvalidCredentials, ErrValidation} {
			if errors.Is(err, s) {
				return s.Error()
			}
		}
	case http.StatusForbidden:
		return "login required"
	case http.StatusBadGateway:
		return "payment gateway unavailable, query the order before retrying"
	}
	return "internal server error"
}
