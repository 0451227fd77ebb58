package easysms

import (
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/journal"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/observability"
)

// Option configures an EasySms instance
type Option func(*EasySms)

// WithLogger sets the logger shared by the facade, the dispatcher and gateways
func WithLogger(log logger.Logger) Option {
	return func(e *EasySms) {
		e.logger = logger.OrDiscard(log)
	}
}

// WithTelemetry sets the OpenTelemetry provider. It is shut down by Close.
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(e *EasySms) {
		if tp != nil {
			e.telemetry = tp
		}
	}
}

// WithJournal records every dispatch. The recorder is closed by Close.
func WithJournal(rec journal.Recorder) Option {
	return func(e *EasySms) {
		if rec != nil {
			e.journal = rec
		}
	}
}

// WithConcurrency sends to up to n candidate gateways at once
func WithConcurrency(n int) Option {
	return func(e *EasySms) {
		e.concurrency = n
	}
}

// WithRetry retries temporary failures of each gateway. A gateway section
// with its own "retry" settings takes precedence.
func WithRetry(rc gateway.RetryConfig) Option {
	return func(e *EasySms) {
		e.retry = rc
	}
}
