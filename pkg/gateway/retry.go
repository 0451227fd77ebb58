package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns three tries with a short exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
	}
}

// RetryConfigFrom reads "retry.max_tries", "retry.initial_interval" and
// "retry.max_interval" from a gateway config on top of the defaults. A
// max_tries below one means a single try.
func RetryConfigFrom(cfg *config.Config) RetryConfig {
	rc := DefaultRetryConfig()
	tries := cfg.GetInt("retry.max_tries", int(rc.MaxTries))
	if tries < 1 {
		tries = 1
	}
	rc.MaxTries = uint(tries)
	rc.InitialInterval = cfg.GetDuration("retry.initial_interval", rc.InitialInterval)
	rc.MaxInterval = cfg.GetDuration("retry.max_interval", rc.MaxInterval)
	return rc
}

type retryGateway struct {
	Gateway
	rc RetryConfig
}

// WithRetry wraps g so that temporary *Error failures are retried with
// exponential backoff. Provider rejections and non-gateway errors are
// returned immediately. The dispatch loop itself never retries.
func WithRetry(g Gateway, rc RetryConfig) Gateway {
	if rc.MaxTries <= 1 {
		return g
	}
	return &retryGateway{Gateway: g, rc: rc}
}

// Unwrap returns the decorated gateway
func (r *retryGateway) Unwrap() Gateway {
	return r.Gateway
}

func (r *retryGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.rc.InitialInterval
	b.MaxInterval = r.rc.MaxInterval
	if r.rc.Multiplier > 0 {
		b.Multiplier = r.rc.Multiplier
	}

	var lastErr error
	result, err := backoff.Retry(ctx, func() (Result, error) {
		result, err := r.Gateway.Send(ctx, to, msg, cfg)
		if err == nil {
			return result, nil
		}
		if gwErr, ok := AsError(err, r.Name()); ok && gwErr.Temporary() {
			lastErr = err
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.rc.MaxTries))

	// A deadline hit while waiting between tries reports the last failure.
	if err != nil && ctx.Err() != nil && lastErr != nil {
		return nil, lastErr
	}
	return result, err
}
