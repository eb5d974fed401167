package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Code identifies the category of a failure.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeDatabase     Code = "DATABASE_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a typed failure surfaced from the store, lifecycle and query
// layers to the HTTP boundary.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
	Cause   error             `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value detail, e.g. the offending field.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the status code the API layer responds with.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NotFound reports that the named entity has no matching row.
func NotFound(entity string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity))
}

// Conflict reports a uniqueness violation with a descriptive message.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// Validation reports malformed input rejected before reaching storage.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// BadRequest reports an unparseable request.
func BadRequest(message string) *Error {
	return New(CodeBadRequest, message)
}

// Database wraps a storage failure. These are reported, never retried.
func Database(message string, cause error) *Error {
	return &Error{Code: CodeDatabase, Message: message, Cause: cause}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsConflict reports whether err is a Conflict failure.
func IsConflict(err error) bool { return Is(err, CodeConflict) }

// IsValidation reports whether err is a Validation failure.
func IsValidation(err error) bool { return Is(err, CodeValidation) }
