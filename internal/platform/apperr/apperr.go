// Package apperr defines the error kinds services return and their mapping
// to HTTP responses.
package apperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aihaudit/aih/internal/platform/db"
)

// InternalMessage is what clients see for storage failures.
const InternalMessage = "erro interno ao acessar o banco de dados"

// ValidationError carries every problem found in one input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// NewValidation returns a ValidationError, or nil when problems is empty.
func NewValidation(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// NotFoundError reports a missing AIH, movement, glosa or user.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NotFound returns a NotFoundError with msg.
func NotFound(msg string) error { return &NotFoundError{Message: msg} }

// ConflictError reports a duplicate record or an out-of-sequence operation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict returns a ConflictError with msg.
func Conflict(msg string) error { return &ConflictError{Message: msg} }

// AuthError reports a failed credential check. Forbidden distinguishes an
// authenticated caller lacking a grant (403) from bad credentials (401).
type AuthError struct {
	Message   string
	Forbidden bool
}

func (e *AuthError) Error() string { return e.Message }

// Unauthorized returns a 401 AuthError.
func Unauthorized(msg string) error { return &AuthError{Message: msg} }

// Forbidden returns a 403 AuthError.
func Forbidden(msg string) error { return &AuthError{Message: msg, Forbidden: true} }

// Status returns the HTTP status for err.
func Status(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		ae *AuthError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ce):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ae):
		if ae.Forbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an echo.HTTPError. Storage failures and unknown
// errors get a generic message; the caller's logger keeps the detail.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	status := Status(err)
	if status == http.StatusInternalServerError {
		var qe *db.QueryError
		if errors.As(err, &qe) {
			return echo.NewHTTPError(status, InternalMessage).SetInternal(err)
		}
		return echo.NewHTTPError(status, "erro interno do servidor").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}
