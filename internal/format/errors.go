package format

import "fmt"

// ErrorCode classifies format errors.
type ErrorCode string

// ErrorCode constants for format selection errors.
const (
	ErrUnknownPixelFormat ErrorCode = "UNKNOWN_PIXEL_FORMAT"
	ErrInvalidDimensions  ErrorCode = "INVALID_DIMENSIONS"
	ErrUnknownFormatName  ErrorCode = "UNKNOWN_FORMAT_NAME"
)

// Error is a configuration error raised by the format policy. It means the
// declared capture format does not match what the policy supports and is
// never retried.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// NewFormatError creates a new format error.
func NewFormatError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}
