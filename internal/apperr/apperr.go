// Package apperr defines the error kinds shared by every layer.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing task, conversation, account or tool.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument reports malformed input such as an empty title or bad date.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConstraintViolation reports a storage-level integrity failure.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrProviderUnavailable reports that the completion provider could not be reached.
	ErrProviderUnavailable = errors.New("completion provider unavailable")
	// ErrProviderError reports that the completion provider rejected the request.
	ErrProviderError = errors.New("completion provider error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Invalid wraps ErrInvalidArgument with a human readable reason.
func Invalid(reason string) error {
	return &reasonError{kind: ErrInvalidArgument, reason: reason}
}

// NotFound wraps ErrNotFound with a human readable reason.
func NotFound(reason string) error {
	return &reasonError{kind: ErrNotFound, reason: reason}
}

// Conflict wraps ErrConstraintViolation with a human readable reason.
func Conflict(reason string) error {
	return &reasonError{kind: ErrConstraintViolation, reason: reason}
}

type reasonError struct {
	kind   error
	reason string
}

func (e *reasonError) Error() string { return e.reason }

func (e *reasonError) Unwrap() error { return e.kind }
