// Package errors provides standardized domain errors with machine-readable
// codes for the ConvoMark host.
//
// Usage:
//
//	// In the store - return typed errors
//	if record.ID == "" {
//	    return errors.InvalidRecord("record is missing an id")
//	}
//
//	// In RPC handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    // absence is an expected outcome, answer with null data
//	}
//
//	// Or switch on the code directly
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeQuotaExceeded:
//	        // warn the user before further writes
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidRecord      Code = "INVALID_RECORD"
	CodeContextInvalidated Code = "CONTEXT_INVALIDATED"
	CodeSchemaMismatch     Code = "SCHEMA_MISMATCH"
	CodeQuotaExceeded      Code = "QUOTA_EXCEEDED"
	CodeValidation         Code = "VALIDATION"
	CodeNotReady           Code = "NOT_READY"
	CodeInternal           Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithMessage returns a new error with a custom message, keeping the code.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Details: e.Details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidRecord      = &Error{Code: CodeInvalidRecord, Message: "invalid record"}
	ErrContextInvalidated = &Error{Code: CodeContextInvalidated, Message: "context invalidated"}
	ErrSchemaMismatch     = &Error{Code: CodeSchemaMismatch, Message: "schema mismatch"}
	ErrQuotaExceeded      = &Error{Code: CodeQuotaExceeded, Message: "storage quota exceeded"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotReady           = &Error{Code: CodeNotReady, Message: "not ready"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidRecord creates an invalid record error.
func InvalidRecord(msg string) *Error {
	return &Error{Code: CodeInvalidRecord, Message: msg}
}

// InvalidRecordf creates an invalid record error with formatted message.
func InvalidRecordf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidRecord, Message: fmt.Sprintf(format, args...)}
}

// ContextInvalidated creates a context invalidated error.
func ContextInvalidated(msg string) *Error {
	return &Error{Code: CodeContextInvalidated, Message: msg}
}

// SchemaMismatch creates a schema mismatch error.
func SchemaMismatch(msg string) *Error {
	return &Error{Code: CodeSchemaMismatch, Message: msg}
}

// SchemaMismatchf creates a schema mismatch error with formatted message.
func SchemaMismatchf(format string, args ...any) *Error {
	return &Error{Code: CodeSchemaMismatch, Message: fmt.Sprintf(format, args...)}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(msg string) *Error {
	return &Error{Code: CodeQuotaExceeded, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotReady creates a not ready error.
func NotReady(msg string) *Error {
	return &Error{Code: CodeNotReady, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
