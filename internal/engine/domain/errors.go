package domain

import (
	"fmt"

	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

// Error is a failed engine call. Code is either the engine's own error code or
// one of engine_unavailable / engine_request_failed.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("engine %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("engine: %s (%s)", e.Message, e.Code)
}

// ErrorCode returns the protocol error code.
func (e *Error) ErrorCode() string { return e.Code }

// ErrorMessage returns the message without transport decoration.
func (e *Error) ErrorMessage() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// NewUnavailableError creates an engine_unavailable error.
func NewUnavailableError(message string, status int, err error) *Error {
	return &Error{Code: apperrors.CodeEngineUnavailable, Message: message, Status: status, Err: err}
}

// NewRequestFailedError creates an engine_request_failed error.
func NewRequestFailedError(message string, status int, err error) *Error {
	return &Error{Code: apperrors.CodeEngineRequestFailed, Message: message, Status: status, Err: err}
}
