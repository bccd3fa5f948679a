package types

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test for them with errors.Is.
var (
	// Request errors
	ErrValidation   = errors.New("validation failed")
	ErrNotAvailable = errors.New("product not available")
	ErrNotFound     = errors.New("not found")

	// State errors
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
)

// Error carries a client-facing message together with one of the error kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports a missing or malformed request field.
func Validationf(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// NotAvailablef reports a product that is missing, inactive or short on stock.
func NotAvailablef(format string, args ...interface{}) error {
	return newError(ErrNotAvailable, format, args...)
}

// NotFoundf reports an absent order or product.
func NotFoundf(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func InvalidTransitionf(format string, args ...interface{}) error {
	return newError(ErrInvalidTransition, format, args...)
}

func NotCancellablef(format string, args ...interface{}) error {
	return newError(ErrNotCancellable, format, args...)
}

// IsClientError reports whether err is caused by the caller rather than by the server.
func IsClientError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Message returns the client-facing message of err, or "" when err is not a *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
