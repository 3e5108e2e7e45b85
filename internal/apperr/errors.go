// Package apperr defines the error taxonomy shared by the service layer.
// Services return values built from these kinds and the HTTP layer maps
// each kind to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a duplicate identity or a lost concurrent update.
	ErrConflict = errors.New("conflict")
	// ErrAuth marks bad credentials or an invalid, revoked or replayed token.
	ErrAuth = errors.New("unauthorized")
	// ErrNotFound marks a missing account, catalog node or payment.
	ErrNotFound = errors.New("not found")
	// ErrCapacity marks an exhausted per-account session limit.
	ErrCapacity = errors.New("capacity exceeded")
)

// Error carries a client-facing message alongside one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns an ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns an ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Auth returns an ErrAuth. The message is for logs only; the HTTP layer
// never echoes it back.
func Auth(reason string) error {
	return &Error{Kind: ErrAuth, Msg: reason}
}

// Capacity returns an ErrCapacity with a formatted message.
func Capacity(format string, args ...any) error {
	return &Error{Kind: ErrCapacity, Msg: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing message of err when it is an *Error,
// otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
