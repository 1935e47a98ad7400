// Package apperrors defines the error kinds shared by services and HTTP handlers.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrUpstreamProvider = errors.New("payment provider error")
	// ErrDuplicateOrder marks an idempotency collision. It is benign and never
	// surfaced to an external caller.
	ErrDuplicateOrder = errors.New("duplicate order")
	ErrNotFound       = errors.New("not found")
)

// Error carries a kind, a message safe to return to clients, and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(ErrValidation, message)
}

func NotFound(message string) *Error {
	return New(ErrNotFound, message)
}

func Upstream(message string, err error) *Error {
	return Wrap(ErrUpstreamProvider, message, err)
}

// HTTPStatus maps an error to the status code it should be reported with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for err. Unknown errors are reported
// generically so internals do not leak.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
