// Package errors provides error types for easysms
package errors

import (
	"errors"
	"fmt"
)

// Error represents an easysms error with structured information.
// Gateway send failures are reported with gateway.Error instead.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Name    string    `json:"name,omitempty"` // gateway or strategy the error refers to
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithName sets the gateway or strategy name the error refers to
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithCause adds a cause error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	return New(code, message).WithCause(err)
}

// Wrapf wraps an existing error with an Error and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Sentinels usable with errors.Is
var (
	InvalidArgument    = New(ErrInvalidArgument, "invalid argument")
	InvalidConfig      = New(ErrInvalidConfig, "invalid config")
	NoDefaultGateway   = New(ErrNoDefaultGateway, "no default gateway configured")
	NoGatewayAvailable = New(ErrNoGatewayAvailable, "no gateway available")
)

// GetErrorCode extracts the error code from an error chain
func GetErrorCode(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsInvalidArgument checks if err carries ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrInvalidArgument)
}

// IsNoDefaultGateway checks if err carries ErrNoDefaultGateway
func IsNoDefaultGateway(err error) bool {
	return hasCode(err, ErrNoDefaultGateway)
}

// IsConfigError checks if err is a configuration error
func IsConfigError(err error) bool {
	code, ok := GetErrorCode(err)
	return ok && GetCategory(code) == "configuration"
}

func hasCode(err error, code ErrorCode) bool {
	got, ok := GetErrorCode(err)
	return ok && got == code
}

// IsNoGatewayAvailable checks if err reports that every attempted gateway failed
func IsNoGatewayAvailable(err error) bool {
	return errors.Is(err, NoGatewayAvailable)
}
