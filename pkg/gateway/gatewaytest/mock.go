// Package gatewaytest provides a mock gateway and a contract test for
// gateway implementations.
package gatewaytest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// SendFunc implements MockGateway.Send
type SendFunc func(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error)

// MockGateway is a configurable in-memory gateway
type MockGateway struct {
	gateway.Base
	send    SendFunc
	timeout time.Duration
	calls   atomic.Int64
	closed  atomic.Bool

	mu       sync.Mutex
	contents []string
}

// NewMockGateway creates a mock that succeeds with {"ok": true} unless send
// is given.
func NewMockGateway(name string, send SendFunc) *MockGateway {
	return &MockGateway{Base: gateway.NewBase(name, nil), send: send}
}

// Succeed returns a mock that always succeeds with result
func Succeed(name string, result gateway.Result) *MockGateway {
	return NewMockGateway(name, func(context.Context, *phone.Number, *message.Message, *config.Config) (gateway.Result, error) {
		return result, nil
	})
}

// Fail returns a mock that always fails with a provider error
func Fail(name string, code any, msg string) *MockGateway {
	return NewMockGateway(name, func(context.Context, *phone.Number, *message.Message, *config.Config) (gateway.Result, error) {
		return nil, gateway.NewError(msg, code, map[string]any{"code": code, "message": msg})
	})
}

// WithTimeout overrides the configured timeout
func (m *MockGateway) WithTimeout(d time.Duration) *MockGateway {
	m.timeout = d
	return m
}

// Timeout returns the override, or the Base timeout
func (m *MockGateway) Timeout() time.Duration {
	if m.timeout > 0 {
		return m.timeout
	}
	return m.Base.Timeout()
}

// Send records the call and delegates to the SendFunc
func (m *MockGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.contents = append(m.contents, msg.Content(m))
	m.mu.Unlock()

	if m.send == nil {
		return gateway.Result{"ok": true}, nil
	}
	return m.send(ctx, to, msg, cfg)
}

// Calls returns the number of Send calls
func (m *MockGateway) Calls() int {
	return int(m.calls.Load())
}

// Contents returns the resolved content of every Send call
func (m *MockGateway) Contents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.contents...)
}

// Close marks the mock closed
func (m *MockGateway) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called
func (m *MockGateway) Closed() bool {
	return m.closed.Load()
}
