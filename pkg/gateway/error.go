package gateway

import (
	"errors"
	"fmt"
)

// Error is the one failure kind a gateway reports. The messenger records it
// against the gateway and moves on to the next one.
type Error struct {
	// Gateway is filled in by the messenger when the adapter leaves it empty.
	Gateway string `json:"gateway,omitempty"`
	Message string `json:"message"`
	// Code is the provider error code; its type depends on the provider.
	Code any `json:"code,omitempty"`
	// Raw is the decoded provider response, when there was one.
	Raw       map[string]any `json:"raw,omitempty"`
	Cause     error          `json:"-"`
	temporary bool
}

// NewError creates a provider-reported gateway error.
func NewError(message string, code any, raw map[string]any) *Error {
	return &Error{Message: message, Code: code, Raw: raw}
}

// WrapError wraps a transport failure. Transport failures are temporary.
func WrapError(err error, message string) *Error {
	return &Error{Message: message, Cause: err, temporary: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b []byte
	if e.Gateway != "" {
		b = fmt.Appendf(b, "gateway %s: ", e.Gateway)
	}
	b = append(b, e.Message...)
	if e.Code != nil && e.Code != "" {
		b = fmt.Appendf(b, " (code %v)", e.Code)
	}
	if e.Cause != nil {
		b = fmt.Appendf(b, ": %v", e.Cause)
	}
	return string(b)
}

// Unwrap returns the underlying transport error, if any
func (e *Error) Unwrap() error {
	return e.Cause
}

// Temporary reports whether retrying the same gateway may succeed.
func (e *Error) Temporary() bool {
	return e.temporary
}

// AsTemporary marks the error as retryable and returns it.
func (e *Error) AsTemporary() *Error {
	e.temporary = true
	return e
}

// withGateway returns a copy of e attributed to name.
func (e *Error) withGateway(name string) *Error {
	if e.Gateway != "" {
		return e
	}
	clone := *e
	clone.Gateway = name
	return &clone
}

// AsError extracts a *Error from err's chain and attributes it to the gateway
// named name when the adapter did not.
func AsError(err error, name string) (*Error, bool) {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return nil, false
	}
	return gwErr.withGateway(name), true
}
