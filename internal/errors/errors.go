// Package errors provides coded domain errors for the tracker server.
//
// Usage:
//
//	// In the loader - return typed errors
//	if !ok {
//	    return nil, errors.Schemaf("missing required column %q", name)
//	}
//
//	// At startup - check with errors.Is
//	if errors.Is(err, errors.ErrSchema) {
//	    log.Fatal("dataset schema mismatch", "error", err)
//	}
//
//	// In handlers - switch on the code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeChartRender:
//	        // keep the previous chart, surface a notice
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeDataLoad    Code = "DATA_LOAD"
	CodeSchema      Code = "SCHEMA"
	CodeChartRender Code = "CHART_RENDER"
	CodeValidation  Code = "VALIDATION"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeSuperseded  Code = "SUPERSEDED"
	CodeInternal    Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSuperseded:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeChartRender:
		return http.StatusUnprocessableEntity
	case CodeDataLoad, CodeSchema:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fatal reports whether errors with this code must stop the process at startup.
func (c Code) Fatal() bool {
	return c == CodeDataLoad || c == CodeSchema
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
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

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
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
	ErrDataLoad    = &Error{Code: CodeDataLoad, Message: "dataset load failed"}
	ErrSchema      = &Error{Code: CodeSchema, Message: "dataset schema error"}
	ErrChartRender = &Error{Code: CodeChartRender, Message: "chart render failed"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict    = &Error{Code: CodeConflict, Message: "conflict"}
	ErrSuperseded  = &Error{Code: CodeSuperseded, Message: "superseded by a newer selection"}
	ErrInternal    = &Error{Code: CodeInternal, Message: "internal error"}
)

// DataLoad creates a dataset load error.
func DataLoad(msg string) *Error {
	return &Error{Code: CodeDataLoad, Message: msg}
}

// DataLoadf creates a dataset load error with formatted message.
func DataLoadf(format string, args ...any) *Error {
	return &Error{Code: CodeDataLoad, Message: fmt.Sprintf(format, args...)}
}

// Schema creates a schema error.
func Schema(msg string) *Error {
	return &Error{Code: CodeSchema, Message: msg}
}

// Schemaf creates a schema error with formatted message.
func Schemaf(format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Message: fmt.Sprintf(format, args...)}
}

// ChartRender creates a chart render error.
func ChartRender(msg string) *Error {
	return &Error{Code: CodeChartRender, Message: msg}
}

// ChartRenderf creates a chart render error with formatted message.
func ChartRenderf(format string, args ...any) *Error {
	return &Error{Code: CodeChartRender, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first domain error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
