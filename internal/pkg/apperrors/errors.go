// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code surfaced to API clients.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeInsufficientPayment Code = "INSUFFICIENT_PAYMENT"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeIntegrityViolation  Code = "INTEGRITY_VIOLATION"
)

// Error pairs a code with a human-readable message. The code is stable;
// the message is for display.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two Errors by code so callers can use errors.Is with the
// sentinel constructors below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or out-of-range input, rejected before any mutation.
func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, format, args...)
}

// NotFound reports a missing referenced entity.
func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, format, args...)
}

// InsufficientStock reports that a requested quantity exceeds selectable availability.
func InsufficientStock(format string, args ...interface{}) *Error {
	return newError(CodeInsufficientStock, format, args...)
}

// InsufficientPayment reports a paid amount below the order total.
func InsufficientPayment(format string, args ...interface{}) *Error {
	return newError(CodeInsufficientPayment, format, args...)
}

// InvalidState reports an operation that is not valid for the current status.
func InvalidState(format string, args ...interface{}) *Error {
	return newError(CodeInvalidState, format, args...)
}

// IntegrityViolation reports a broken balance or uniqueness invariant. It is
// always fatal for the enclosing transaction and never auto-corrected.
func IntegrityViolation(format string, args ...interface{}) *Error {
	return newError(CodeIntegrityViolation, format, args...)
}

// Wrap attaches a cause while keeping the code and message.
func Wrap(err *Error, cause error) *Error {
	return &Error{Code: err.Code, Message: err.Message, cause: cause}
}

// CodeOf extracts the code from err, or empty string if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf extracts the display message from err, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
