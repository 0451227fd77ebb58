package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrInvalidArgument, `strategy "nope" not supported`),
			expected: `INVALID_ARGUMENT: strategy "nope" not supported`,
		},
		{
			name:     "error with cause",
			err:      Wrap(errors.New("boom"), ErrInvalidConfig, "parse config"),
			expected: "INVALID_CONFIG: parse config: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_IsByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Newf(ErrInvalidArgument, "gateway %q not registered", "foo").WithName("foo"))

	if !errors.Is(err, InvalidArgument) {
		t.Errorf("expected wrapped error to match InvalidArgument sentinel")
	}
	if errors.Is(err, NoDefaultGateway) {
		t.Errorf("codes differ, errors.Is must be false")
	}
	if !IsInvalidArgument(err) {
		t.Errorf("IsInvalidArgument() = false, want true")
	}

	var e *Error
	if !errors.As(err, &e) || e.Name != "foo" {
		t.Errorf("expected name foo, got %+v", e)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("yaml: bad indent")
	err := Wrap(cause, ErrInvalidConfig, "load config")

	if !errors.Is(err, cause) {
		t.Errorf("Unwrap should expose the cause")
	}
	if !IsConfigError(err) {
		t.Errorf("IsConfigError() = false, want true")
	}
}

func TestGetErrorCodeInfo(t *testing.T) {
	if got := GetCategory(ErrNoDefaultGateway); got != "runtime" {
		t.Errorf("GetCategory() = %q, want runtime", got)
	}
	if got := GetCategory(ErrorCode("SOMETHING_ELSE")); got != "unknown" {
		t.Errorf("GetCategory() = %q, want unknown", got)
	}
	if _, ok := GetErrorCode(errors.New("plain")); ok {
		t.Errorf("plain errors carry no code")
	}
}
