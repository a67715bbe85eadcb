// Package apperr holds the error taxonomy shared by the monetization
// packages and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication required")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrSignature  = errors.New("signature rejected")
	ErrInternal   = errors.New("internal error")
)

// InvalidSignature is returned for every signature or freshness failure so
// callers cannot tell which check failed.
var InvalidSignature error = &Error{Kind: ErrSignature, Message: "invalid request"}

// Error carries a kind, a public message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
	status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithStatus returns a copy answering with the given HTTP status instead of
// the kind's default.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.status = status
	return &cp
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

func Auth(format string, args ...any) *Error {
	return newError(ErrAuth, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(ErrConflict, format, args...)
}

// Internal wraps an unexpected failure. The cause is never shown to clients.
func Internal(err error, format string, args ...any) *Error {
	e := newError(ErrInternal, format, args...)
	e.Err = err
	return e
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) && e.status != 0 {
		return e.status
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to send to a client.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSignature) {
		return "invalid request"
	}
	var e *Error
	if errors.As(err, &e) && !errors.Is(e.Kind, ErrInternal) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
