// Package gateways contains the built-in gateway adapters.
//
// Every adapter reads its credentials from its own gateway config and accepts
// an "endpoint" key overriding the provider URL.
package gateways

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/message"
)

// Built-in gateway names
const (
	NameLog      = "log"
	NameErrorlog = "errorlog"
	NameWebhook  = "webhook"
	NameAliyun   = "aliyun"
	NameTencent  = "tencent"
	NameTwilio   = "twilio"
	NameYunpian  = "yunpian"
	NameAWSSNS   = "awssns"
)

// Builtins returns the creators of every built-in gateway
func Builtins() map[string]gateway.Creator {
	return map[string]gateway.Creator{
		NameLog:      NewLog,
		NameErrorlog: NewErrorlog,
		NameWebhook:  NewWebhook,
		NameAliyun:   NewAliyun,
		NameTencent:  NewQcloud,
		NameTwilio:   NewTwilio,
		NameYunpian:  NewYunpian,
		NameAWSSNS:   NewAWSSNS,
	}
}

// RegisterBuiltins registers every built-in gateway
func RegisterBuiltins(reg *gateway.Registry) error {
	for name, creator := range Builtins() {
		if err := reg.Register(name, creator); err != nil {
			return err
		}
	}
	return nil
}

// clock and nonce sources, replaced in tests
var (
	now   = time.Now
	nonce = uuid.NewString
)

// requireKeys reports the first missing credential as an INVALID_CONFIG error.
func requireKeys(name string, cfg *config.Config, keys ...string) error {
	for _, key := range keys {
		if cfg.GetString(key, "") == "" {
			return errors.Newf(errors.ErrInvalidConfig, "gateway %s: %s is required", name, key).WithName(name)
		}
	}
	return nil
}

// dataStrings renders template data values as strings, in order.
func dataStrings(data message.Data) []string {
	values := data.Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// providerError builds a gateway error from a decoded response body.
func providerError(body map[string]any, messageKey, codeKey string) *gateway.Error {
	msg, _ := body[messageKey].(string)
	if msg == "" {
		msg = "provider rejected the request"
	}
	return gateway.NewError(msg, body[codeKey], body)
}
