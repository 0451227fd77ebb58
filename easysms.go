// Package easysms sends one SMS through an ordered set of gateways, falling
// back to the next gateway when one fails.
//
// Basic usage:
//
//	opts, err := config.LoadFile("easysms.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sms, err := easysms.New(opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sms.Close()
//
//	msg := message.NewBuilder().
//		SetContent("Your code is 1234").
//		SetTemplate("SMS_001").
//		AddData("code", "1234").
//		Build()
//
//	results, err := sms.Send(ctx, phone.New("+8618888888888"), msg)
package easysms

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/gateways"
	"github.com/kart-io/easysms/pkg/journal"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/messenger"
	"github.com/kart-io/easysms/pkg/observability"
	"github.com/kart-io/easysms/pkg/phone"
	"github.com/kart-io/easysms/pkg/strategy"
)

// EasySms is the entry point. It owns the gateway and strategy caches; one
// instance is safe for concurrent use.
type EasySms struct {
	options    *config.Options
	registry   *gateway.Registry
	strategies *strategy.Registry
	messenger  *messenger.Messenger
	journal    journal.Recorder
	telemetry  *observability.TelemetryProvider
	logger     logger.Logger

	concurrency int
	retry       gateway.RetryConfig

	defaultGateway string
	instances      map[string]gateway.Gateway
	generations    map[string]uint64
	group          singleflight.Group
	mu             sync.RWMutex
}

// New creates an EasySms from top-level options. nil options mean defaults.
func New(opts *config.Options, options ...Option) (*EasySms, error) {
	if opts == nil {
		var err error
		if opts, err = config.New(); err != nil {
			return nil, err
		}
	}
	if err := opts.Validate().Err(); err != nil {
		return nil, err
	}

	e := &EasySms{
		options:   opts,
		journal:   journal.Discard,
		telemetry: observability.Noop(),
		logger:    logger.Discard,
		instances:   make(map[string]gateway.Gateway),
		generations: make(map[string]uint64),
	}
	for _, opt := range options {
		opt(e)
	}

	e.registry = gateway.NewRegistry(e.logger)
	if err := gateways.RegisterBuiltins(e.registry); err != nil {
		return nil, err
	}
	e.strategies = strategy.NewRegistry(func(err error) {
		e.logger.Warn("Random strategy fell back to a non-cryptographic source", "error", err)
	})
	e.messenger = messenger.New(e,
		messenger.WithLogger(e.logger),
		messenger.WithTelemetry(e.telemetry),
		messenger.WithConcurrency(e.concurrency),
	)

	e.logger.Debug("EasySms initialized",
		"gateways", opts.Gateways.Names(),
		"default_gateways", opts.DefaultGateways,
		"strategy", opts.DefaultStrategy)
	return e, nil
}

// Options returns the options the instance was built with
func (e *EasySms) Options() *config.Options {
	return e.options
}

// Messenger returns the dispatcher used by Send
func (e *EasySms) Messenger() *messenger.Messenger {
	return e.messenger
}

// Send dispatches msg to the first gateway that succeeds.
//
// The candidates are the gateways named in the call, else the message's own
// allow-list, else the configured default gateways. The allow-list also
// restricts explicitly named gateways. When no attempted gateway
// succeeds, Send returns the results together with a
// *messenger.NoGatewayAvailableError.
func (e *EasySms) Send(ctx context.Context, to *phone.Number, msg *message.Message, names ...string) (*messenger.Results, error) {
	if msg == nil {
		return nil, errors.New(errors.ErrInvalidArgument, "message is nil")
	}

	candidates := e.candidates(msg, names)
	results, err := e.messenger.Send(ctx, to, msg, candidates)
	if err != nil {
		return nil, err
	}

	entry := journal.NewEntry(to, results)
	if jerr := e.journal.Record(ctx, entry); jerr != nil {
		e.logger.Error("Failed to journal dispatch", "dispatch_id", results.DispatchID(), "error", jerr)
	}

	if err := results.Escalate(); err != nil {
		return results, err
	}
	return results, nil
}

// SendTo is Send for a raw recipient and a message given as *message.Message,
// a bare string or an attribute map.
func (e *EasySms) SendTo(ctx context.Context, to string, msg any, names ...string) (*messenger.Results, error) {
	m, err := messenger.Normalize(msg)
	if err != nil {
		return nil, err
	}
	return e.Send(ctx, phone.New(to), m, names...)
}

func (e *EasySms) candidates(msg *message.Message, names []string) *config.Gateways {
	switch {
	case len(names) > 0:
	case len(msg.Gateways()) > 0:
		names = msg.Gateways()
	default:
		names = e.options.DefaultGateways
	}

	set := config.NewGateways()
	for _, name := range names {
		set.Add(name, e.gatewayConfig(name))
	}
	return set
}

// gatewayConfig returns the gateways.<name> section with the library-wide
// timeout filled in when the section sets none.
func (e *EasySms) gatewayConfig(name string) *config.Config {
	cfg := e.options.Gateway(name)
	if cfg.Get("timeout") == nil {
		cfg = cfg.With("timeout", e.options.Timeout)
	}
	return cfg
}

// Gateway returns the cached instance for name, creating it on first use. An
// empty name selects the default gateway.
func (e *EasySms) Gateway(name string) (gateway.Gateway, error) {
	if name == "" {
		name = e.DefaultGateway()
		if name == "" {
			return nil, errors.NoDefaultGateway
		}
	}

	e.mu.RLock()
	gw, ok := e.instances[name]
	e.mu.RUnlock()
	if ok {
		return gw, nil
	}

	v, err, _ := e.group.Do(name, func() (any, error) {
		for {
			e.mu.RLock()
			gw, ok := e.instances[name]
			generation := e.generations[name]
			e.mu.RUnlock()
			if ok {
				return gw, nil
			}

			gw, err := e.buildGateway(name)
			if err != nil {
				return nil, err
			}

			// An Extend during the build invalidates it; rebuild with the
			// new creator.
			e.mu.Lock()
			if e.generations[name] == generation {
				e.instances[name] = gw
				e.mu.Unlock()
				e.logger.Debug("Gateway created", "gateway", name)
				return gw, nil
			}
			e.mu.Unlock()
			closeGateway(gw)
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(gateway.Gateway), nil
}

func (e *EasySms) buildGateway(name string) (gateway.Gateway, error) {
	cfg := e.gatewayConfig(name)
	gw, err := e.registry.Create(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Get("retry") != nil {
		return gateway.WithRetry(gw, gateway.RetryConfigFrom(cfg)), nil
	}
	return gateway.WithRetry(gw, e.retry), nil
}

// Strategy returns the cached strategy for name. An empty name selects the
// configured default strategy.
func (e *EasySms) Strategy(name string) (strategy.Strategy, error) {
	if name == "" {
		name = e.options.DefaultStrategy
	}
	return e.strategies.Get(name)
}

// RegisterStrategy adds a custom strategy under name
func (e *EasySms) RegisterStrategy(name string, factory func() strategy.Strategy) {
	e.strategies.Register(name, factory)
}

// DefaultGateway returns the gateway used by an unqualified Gateway call: the
// one set with SetDefaultGateway, else the first configured default gateway.
func (e *EasySms) DefaultGateway() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.defaultGateway != "" {
		return e.defaultGateway
	}
	if len(e.options.DefaultGateways) > 0 {
		return e.options.DefaultGateways[0]
	}
	return ""
}

// SetDefaultGateway sets the gateway used by an unqualified Gateway call
func (e *EasySms) SetDefaultGateway(name string) *EasySms {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.defaultGateway = name
	return e
}

// Extend registers creator for name, replacing any built-in or earlier
// creator. A cached instance of that name is dropped, and an instance being
// built concurrently is discarded in favour of one from creator.
func (e *EasySms) Extend(name string, creator gateway.Creator) *EasySms {
	e.registry.Extend(name, creator)

	e.mu.Lock()
	gw := e.instances[name]
	delete(e.instances, name)
	e.generations[name]++
	e.mu.Unlock()

	closeGateway(gw)
	return e
}

// Close releases cached gateways that hold resources, the journal and the
// telemetry exporter.
func (e *EasySms) Close() error {
	e.mu.Lock()
	instances := e.instances
	e.instances = make(map[string]gateway.Gateway)
	e.mu.Unlock()

	var errs []error
	for _, gw := range instances {
		if err := closeGateway(gw); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.journal.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.telemetry.Shutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func closeGateway(gw gateway.Gateway) error {
	for gw != nil {
		if c, ok := gw.(io.Closer); ok {
			return c.Close()
		}
		u, ok := gw.(interface{ Unwrap() gateway.Gateway })
		if !ok {
			return nil
		}
		gw = u.Unwrap()
	}
	return nil
}
