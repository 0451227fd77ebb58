// Functional options for easysms configuration
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimeout is the library-wide gateway timeout.
const DefaultTimeout = 5 * time.Second

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = "order"

// Options is the top-level easysms configuration:
//
//	timeout: 5
//	default:
//	  strategy: order
//	  gateways: [aliyun, tencent]
//	gateways:
//	  aliyun: {access_key_id: ..., access_key_secret: ..., sign_name: ...}
type Options struct {
	Timeout         time.Duration
	DefaultStrategy string
	DefaultGateways []string
	Gateways        *Gateways
}

// Option defines a functional option for configuration
type Option func(*Options) error

// New creates a new configuration with the given options
func New(opts ...Option) (*Options, error) {
	o := &Options{
		Timeout:         DefaultTimeout,
		DefaultStrategy: DefaultStrategy,
		Gateways:        NewGateways(),
	}
	return o, o.apply(opts...)
}

func (o *Options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	o.normalize()
	return nil
}

// normalize fills zero values with defaults
func (o *Options) normalize() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DefaultStrategy == "" {
		o.DefaultStrategy = DefaultStrategy
	}
	if o.Gateways == nil {
		o.Gateways = NewGateways()
	}
}

// Gateway returns the config of the named gateway, or an empty Config.
func (o *Options) Gateway(name string) *Config {
	if cfg, ok := o.Gateways.Get(name); ok {
		return cfg
	}
	return NewConfig(nil)
}

// WithTimeout sets the library-wide gateway timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// WithStrategy sets the default strategy identifier
func WithStrategy(name string) Option {
	return func(o *Options) error {
		o.DefaultStrategy = name
		return nil
	}
}

// WithDefaultGateways sets the gateways used when a send names none
func WithDefaultGateways(names ...string) Option {
	return func(o *Options) error {
		o.DefaultGateways = append([]string(nil), names...)
		return nil
	}
}

// WithGateway adds a gateway section; declaration order is preserved
func WithGateway(name string, settings map[string]any) Option {
	return func(o *Options) error {
		if o.Gateways == nil {
			o.Gateways = NewGateways()
		}
		o.Gateways.Add(name, NewConfig(settings))
		return nil
	}
}

// WithEnv loads a .env file when present and overlays <prefix>TIMEOUT,
// <prefix>DEFAULT_STRATEGY and <prefix>DEFAULT_GATEWAYS.
func WithEnv(prefix string, files ...string) Option {
	return func(o *Options) error {
		// A missing .env file is the common case.
		_ = godotenv.Load(files...)

		if v := getEnv(prefix + "TIMEOUT"); v != "" {
			if d, ok := toDuration(v); ok {
				o.Timeout = d
			}
		}
		if v := getEnv(prefix + "DEFAULT_STRATEGY"); v != "" {
			o.DefaultStrategy = v
		}
		if v := getEnv(prefix + "DEFAULT_GATEWAYS"); v != "" {
			o.DefaultGateways = splitList(v)
		}
		return nil
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
