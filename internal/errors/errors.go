package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a vidpage error code.
type ErrorCode string

const (
	ErrNetwork    ErrorCode = "NETWORK"    // 502
	ErrParse      ErrorCode = "PARSE"      // 502
	ErrTimeout    ErrorCode = "TIMEOUT"    // 504
	ErrNotFound   ErrorCode = "NOT_FOUND"  // 404
	ErrValidation ErrorCode = "VALIDATION" // 400
	ErrUpstream   ErrorCode = "UPSTREAM"   // 502 (AI, YouTube, ffmpeg)
	ErrInternal   ErrorCode = "INTERNAL"   // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNetwork creates a 502 error for transport failures and non-2xx responses.
func NewNetwork(msg string) *Error {
	return &Error{
		Code:    ErrNetwork,
		Status:  502,
		Message: msg,
	}
}

// NewParse creates a 502 error for payloads that are not the expected JSON.
func NewParse(what string, err error) *Error {
	msg := fmt.Sprintf("malformed %s", what)
	if err != nil {
		msg = fmt.Sprintf("malformed %s: %v", what, err)
	}
	return &Error{
		Code:    ErrParse,
		Status:  502,
		Message: msg,
	}
}

// NewTimeout creates a 504 error when a call exceeds its deadline.
func NewTimeout(op string) *Error {
	return &Error{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out", op),
		Details: map[string]any{"operation": op},
	}
}

// NewNotFound creates a 404 error for a missing video, section or resource.
func NewNotFound(kind, identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewValidation creates a 400 error for missing or malformed input.
func NewValidation(msg string) *Error {
	return &Error{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewUpstream creates a 502 error for a failing collaborator service.
func NewUpstream(service string, err error) *Error {
	msg := fmt.Sprintf("%s request failed", service)
	if err != nil {
		msg = fmt.Sprintf("%s request failed: %v", service, err)
	}
	return &Error{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging, not in Message.
func NewInternal(err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// WithDetail returns e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// As extracts an *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	var vErr *Error
	if stderrors.As(err, &vErr) {
		return vErr
	}
	return NewInternal(err)
}

// Is checks if an error is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var vErr *Error
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}
