// Package gateway defines the contract every SMS provider adapter implements.
package gateway

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// Result is the decoded provider response of a successful send. Its shape is
// provider specific and opaque to the dispatcher.
type Result = map[string]any

// Gateway is an adapter to one SMS provider.
//
// Send must report transport and provider failures as *Error; any other error
// is treated by the messenger as a programming error and aborts dispatch.
// Implementations must not mutate msg or cfg.
type Gateway interface {
	Name() string
	Timeout() time.Duration
	TransportOptions() map[string]any
	Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (Result, error)
}

// Base carries the name and configuration shared by gateway implementations.
// Concrete gateways embed it and implement Send.
type Base struct {
	name   string
	config *config.Config
}

// NewBase creates a Base for the named gateway.
func NewBase(name string, cfg *config.Config) Base {
	if cfg == nil {
		cfg = config.NewConfig(nil)
	}
	return Base{name: name, config: cfg}
}

// Name returns the gateway name
func (b *Base) Name() string {
	return b.name
}

// Config returns the configuration the gateway was created with
func (b *Base) Config() *config.Config {
	return b.config
}

// Timeout returns config "timeout", falling back to config.DefaultTimeout
func (b *Base) Timeout() time.Duration {
	return b.config.GetDuration("timeout", config.DefaultTimeout)
}

// TransportOptions returns config "options", or an empty map
func (b *Base) TransportOptions() map[string]any {
	return b.config.GetStringMap("options")
}

// DeriveName derives a gateway name from the concrete type of v: the type
// name with a trailing "Gateway" removed, lowercased. AliyunGateway becomes
// "aliyun".
func DeriveName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := strings.TrimSuffix(t.Name(), "Gateway")
	return strings.ToLower(name)
}
