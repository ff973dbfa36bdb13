package session

import (
	"errors"
	"fmt"
)

// Error is a registry error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeNotFound     = "SESSION_NOT_FOUND"
	ErrCodeExists       = "SESSION_EXISTS"
	ErrCodeInvalidParam = "INVALID_PARAMS"
)

// NewError creates a new session error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err wraps a session error with the given code.
func HasCode(err error, code string) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
