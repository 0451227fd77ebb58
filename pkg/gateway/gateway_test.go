package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

type AliyunGateway struct{ Base }

type stubGateway struct {
	Base
	calls int
	errs  []error
}

func (s *stubGateway) Send(context.Context, *phone.Number, *message.Message, *config.Config) (Result, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return Result{"ok": s.calls}, nil
}

func newStub(name string, errs ...error) *stubGateway {
	return &stubGateway{Base: NewBase(name, nil), errs: errs}
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "aliyun", DeriveName(&AliyunGateway{}))
	assert.Equal(t, "aliyun", DeriveName(AliyunGateway{}))
	assert.Equal(t, "stub", DeriveName(&stubGateway{}))
	assert.Equal(t, "time", DeriveName(time.Time{}), "types without the suffix keep their name")
	assert.Equal(t, "", DeriveName(nil))
}

func TestBase_Defaults(t *testing.T) {
	b := NewBase("log", nil)

	assert.Equal(t, "log", b.Name())
	assert.Equal(t, config.DefaultTimeout, b.Timeout())
	assert.Empty(t, b.TransportOptions())
}

func TestBase_ConfigOverrides(t *testing.T) {
	b := NewBase("aliyun", config.NewConfig(map[string]any{
		"timeout": 1.5,
		"options": map[string]any{"proxy": "http://proxy:8080"},
	}))

	assert.Equal(t, 1500*time.Millisecond, b.Timeout())
	assert.Equal(t, map[string]any{"proxy": "http://proxy:8080"}, b.TransportOptions())
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "provider code", err: NewError("bad sign", 7, nil), want: "bad sign (code 7)"},
		{name: "string code", err: NewError("denied", "isv.DENIED", nil), want: "denied (code isv.DENIED)"},
		{name: "no code", err: NewError("empty", nil, nil), want: "empty"},
		{name: "with gateway", err: &Error{Gateway: "aliyun", Message: "x"}, want: "gateway aliyun: x"},
		{name: "transport", err: WrapError(errors.New("dial tcp"), "request failed"), want: "request failed: dial tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAsError(t *testing.T) {
	original := NewError("bad sign", 7, map[string]any{"Code": 7})
	wrapped := fmt.Errorf("send: %w", original)

	gwErr, ok := AsError(wrapped, "aliyun")
	require.True(t, ok)
	assert.Equal(t, "aliyun", gwErr.Gateway)
	assert.Equal(t, 7, gwErr.Code)
	assert.Equal(t, "", original.Gateway, "attribution must not mutate the adapter's error")

	_, ok = AsError(errors.New("boom"), "aliyun")
	assert.False(t, ok)
}

func TestError_Temporary(t *testing.T) {
	assert.False(t, NewError("rejected", 1, nil).Temporary())
	assert.True(t, WrapError(errors.New("timeout"), "x").Temporary())
	assert.True(t, NewError("busy", 503, nil).AsTemporary().Temporary())
}
