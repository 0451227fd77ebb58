// Package messenger dispatches one message to an ordered set of gateways and
// aggregates the per-gateway outcomes.
package messenger

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/observability"
	"github.com/kart-io/easysms/pkg/phone"
	"github.com/kart-io/easysms/pkg/strategy"
)

// Resolver supplies gateway instances and the active strategy. An empty
// strategy name selects the resolver's default.
type Resolver interface {
	Gateway(name string) (gateway.Gateway, error)
	Strategy(name string) (strategy.Strategy, error)
}

// Messenger runs the dispatch loop
type Messenger struct {
	resolver    Resolver
	logger      logger.Logger
	telemetry   *observability.TelemetryProvider
	concurrency int
}

// Option configures a Messenger
type Option func(*Messenger)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(m *Messenger) {
		m.logger = logger.OrDiscard(log)
	}
}

// WithTelemetry sets the telemetry provider
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(m *Messenger) {
		if tp != nil {
			m.telemetry = tp
		}
	}
}

// WithConcurrency sends to up to n gateways at once. n <= 1 keeps the
// sequential loop.
func WithConcurrency(n int) Option {
	return func(m *Messenger) {
		m.concurrency = n
	}
}

// New creates a Messenger
func New(resolver Resolver, opts ...Option) *Messenger {
	m := &Messenger{
		resolver:    resolver,
		logger:      logger.Discard,
		telemetry:   observability.Noop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Normalize turns a bare string or attribute map into a Message. A
// *message.Message is returned unchanged.
func Normalize(msg any) (*message.Message, error) {
	switch v := msg.(type) {
	case *message.Message:
		if v == nil {
			return nil, errors.New(errors.ErrInvalidArgument, "message is nil")
		}
		return v, nil
	case string:
		return message.FromText(v), nil
	case map[string]any:
		return message.FromMap(v), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidArgument, "unsupported message type %T", msg)
	}
}

// Send dispatches msg to the gateways in the order chosen by the resolver's
// default strategy. See SendWith.
func (m *Messenger) Send(ctx context.Context, to *phone.Number, msg *message.Message, gateways *config.Gateways) (*Results, error) {
	return m.SendWith(ctx, "", to, msg, gateways)
}

// SendWith dispatches msg using the named strategy.
//
// A non-empty message allow-list filters the candidates before ordering.
// Each gateway is called with its own config and its own timeout. Gateway
// failures are recorded in the results and dispatch continues; any other
// error aborts the dispatch and is returned without results. An empty
// candidate set yields empty results and no error.
func (m *Messenger) SendWith(ctx context.Context, strategyName string, to *phone.Number, msg *message.Message, gateways *config.Gateways) (*Results, error) {
	if to == nil || msg == nil {
		return nil, errors.New(errors.ErrInvalidArgument, "recipient and message are required")
	}
	if allow := msg.Gateways(); len(allow) > 0 {
		gateways = gateways.Filter(allow)
	}

	s, err := m.resolver.Strategy(strategyName)
	if err != nil {
		return nil, err
	}
	order := s.Apply(gateways)

	dispatchID := uuid.NewString()
	ctx, span := m.telemetry.TraceDispatch(ctx, dispatchID, len(order))
	defer span.End()

	log := m.logger.With("dispatch_id", dispatchID)
	log.Debug("Dispatching message", "to", to.UniversalNumber(), "gateways", order)

	var results *Results
	if m.concurrency > 1 && len(order) > 1 {
		results, err = m.dispatchConcurrent(ctx, dispatchID, order, to, msg, gateways)
	} else {
		results, err = m.dispatchSequential(ctx, dispatchID, order, to, msg, gateways)
	}
	if err != nil {
		m.telemetry.SetSpanError(span, err)
		log.Error("Dispatch aborted", "error", err)
		return nil, err
	}

	succeeded := results.Succeeded()
	if len(succeeded) == 0 && results.Len() > 0 {
		m.telemetry.SetSpanError(span, results.Escalate())
		log.Warn("All gateways failed", "attempted", results.Len())
	} else {
		m.telemetry.SetSpanSuccess(span)
		log.Info("Dispatch completed", "attempted", results.Len(), "succeeded", len(succeeded))
	}
	return results, nil
}

func (m *Messenger) dispatchSequential(ctx context.Context, dispatchID string, order []string, to *phone.Number, msg *message.Message, gateways *config.Gateways) (*Results, error) {
	results := newResults(dispatchID, len(order))
	for _, name := range order {
		outcome, err := m.dispatchOne(ctx, dispatchID, name, to, msg, gatewayConfig(gateways, name))
		if err != nil {
			return nil, err
		}
		results.add(name, outcome)
	}
	return results, nil
}

// dispatchConcurrent writes each outcome to its own pre-sized slot, so no
// locking is needed. The group context is cancelled only by an unexpected
// error, which is then returned alone.
func (m *Messenger) dispatchConcurrent(ctx context.Context, dispatchID string, order []string, to *phone.Number, msg *message.Message, gateways *config.Gateways) (*Results, error) {
	outcomes := make([]Outcome, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, name := range order {
		cfg := gatewayConfig(gateways, name)
		g.Go(func() error {
			outcome, err := m.dispatchOne(gctx, dispatchID, name, to, msg, cfg)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := newResults(dispatchID, len(order))
	for i, name := range order {
		results.add(name, outcomes[i])
	}
	return results, nil
}

func (m *Messenger) dispatchOne(ctx context.Context, dispatchID, name string, to *phone.Number, msg *message.Message, cfg *config.Config) (Outcome, error) {
	gw, err := m.resolver.Gateway(name)
	if err != nil {
		return Outcome{}, err
	}

	if timeout := gw.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := m.telemetry.TraceGatewaySend(ctx, dispatchID, name)
	defer span.End()

	start := time.Now()
	result, err := gw.Send(ctx, to, msg, cfg)
	elapsed := time.Since(start)

	if err == nil {
		m.telemetry.RecordGatewaySent(ctx, name, elapsed)
		m.telemetry.SetSpanSuccess(span)
		m.logger.Debug("Gateway sent", "dispatch_id", dispatchID, "gateway", name, "duration_ms", elapsed.Milliseconds())
		return Ok(result), nil
	}

	gwErr, ok := gateway.AsError(err, name)
	if !ok && ctx.Err() != nil && isContextError(err) {
		// A call cut short by its deadline or by cancellation is still recorded.
		gwErr, ok = gateway.WrapError(err, fmt.Sprintf("gateway %s did not complete", name)), true
		gwErr.Gateway = name
	}
	if !ok {
		m.telemetry.SetSpanError(span, err)
		return Outcome{}, err
	}

	m.telemetry.RecordGatewayFailed(ctx, name, elapsed, errorType(gwErr))
	m.telemetry.SetSpanError(span, gwErr)
	m.logger.Warn("Gateway failed", "dispatch_id", dispatchID, "gateway", name, "error", gwErr.Error(), "duration_ms", elapsed.Milliseconds())
	return Err(gwErr), nil
}

func gatewayConfig(gateways *config.Gateways, name string) *config.Config {
	if cfg, ok := gateways.Get(name); ok {
		return cfg
	}
	return config.NewConfig(nil)
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)
}

func errorType(err *gateway.Error) string {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case stderrors.Is(err, context.Canceled):
		return "cancelled"
	case err.Temporary():
		return "transport"
	default:
		return "provider"
	}
}
