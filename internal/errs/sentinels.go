// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinels across repository/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	// For catalog lookups this is an expected outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the backend rejected the session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest indicates a server-side rejection of the payload (400/422).
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidInput indicates a malformed payload caught before any remote call.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError is a business-rule rejection. It is user actionable and
// never wraps a transport or auth failure.
type ValidationError struct {
	Message string
}

// NewValidationError constructs a ValidationError with the given message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPError is an unexpected non-2xx response from a collaborator.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}
