// Package apperr provides structured domain errors with machine-readable codes.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified internal failure.
	CodeUnknown Code = "UNKNOWN"

	// CodeValidation marks input that fails required/format/length constraints.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound marks a referenced post or account that does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflict marks a store-level uniqueness violation that survived retries.
	CodeConflict Code = "CONFLICT"

	// CodeUnauthorized marks missing or unverifiable caller credentials.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeForbidden marks an ownership check failure on an existing resource.
	CodeForbidden Code = "FORBIDDEN"
)

// HTTPStatus maps the code to the status the HTTP boundary responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type carrying a code and optional field details.
type Error struct {
	Code    Code              // Machine-readable error code
	Message string            // Human-readable message
	Fields  map[string]string // Field-level validation messages
	Cause   error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Validation creates a validation error with field-level messages.
func Validation(message string, fields map[string]string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the domain code from err, or CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
