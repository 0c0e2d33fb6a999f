// Package errors provides standardized domain errors that express gateway intent
// rather than infrastructure details. Sentinel errors are used internally; the
// protocol-visible *Error carries a stable code that reaches the MCP client.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the caller doesn't satisfy the required claims.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates an upstream dependency could not be reached in time.
	ErrUnavailable = errors.New("unavailable")

	// ErrNotImplemented indicates a recognised option that has no implementation.
	ErrNotImplemented = errors.New("not implemented")
)

// Protocol-visible error codes.
const (
	CodeScopeMismatch       = "scope_mismatch"
	CodeUnknownPackage      = "unknown_package"
	CodeClaimsNotSatisfied  = "claims_not_satisfied"
	CodeEngineUnavailable   = "engine_unavailable"
	CodeEngineRequestFailed = "engine_request_failed"
	CodeInternal            = "internal_error"
	CodeInvalidInput        = "invalid_input"
)

// Error is the error shape surfaced to protocol clients as {error:{code,message}}.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the stable error code.
func (e *Error) ErrorCode() string {
	return e.Code
}

// Is matches another *Error with the same code, so callers can compare against
// a template such as &Error{Code: CodeScopeMismatch}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Coded is implemented by errors that carry a protocol error code.
type Coded interface {
	error
	ErrorCode() string
}

// Newf creates a protocol-visible error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Normalize converts any error into a protocol-visible *Error. Errors carrying
// a code keep it, sentinel errors are mapped, everything else is internal_error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr
	}

	var coded Coded
	if errors.As(err, &coded) {
		return &Error{Code: coded.ErrorCode(), Message: messageOf(coded)}
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return &Error{Code: CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, ErrForbidden):
		return &Error{Code: CodeClaimsNotSatisfied, Message: err.Error()}
	case errors.Is(err, ErrUnavailable):
		return &Error{Code: CodeEngineUnavailable, Message: err.Error()}
	}

	return &Error{Code: CodeInternal, Message: err.Error()}
}

// messageOf returns the bare message for coded errors exposing one.
func messageOf(err Coded) string {
	if m, ok := err.(interface{ ErrorMessage() string }); ok {
		return m.ErrorMessage()
	}
	return err.Error()
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
