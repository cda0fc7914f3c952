// Package apperror defines the failure values returned by the access layers.
package apperror

import "errors"

// Kinds. Every AppError wraps exactly one of these so callers can branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
	ErrBackend         = errors.New("backend error")
)

// AppError pairs a kind with the message shown to the user.
type AppError struct {
	Err     error  // kind, one of the Err* sentinels
	Message string // human-readable message
	Field   string // optional input field that caused the error
	Cause   error  // optional underlying error, kept for logs
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns a short machine-readable name for the error kind.
func (e *AppError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return "not_found"
	case errors.Is(e.Err, ErrValidation):
		return "validation"
	case errors.Is(e.Err, ErrConflict):
		return "conflict"
	case errors.Is(e.Err, ErrForbidden):
		return "forbidden"
	case errors.Is(e.Err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(e.Err, ErrRateLimited):
		return "rate_limited"
	default:
		return "backend"
	}
}

// NotFound returns an AppError for a missing resource with a fixed message.
func NotFound(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: message}
}

func RateLimited(message string) *AppError {
	return &AppError{Err: ErrRateLimited, Message: message}
}

// Backend wraps an unclassified failure. The cause's text becomes the message
// unless an explicit message is given.
func Backend(cause error, message string) *AppError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &AppError{Err: ErrBackend, Message: message, Cause: cause}
}

// As reports whether err carries an AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
