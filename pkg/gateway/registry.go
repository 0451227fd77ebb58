package gateway

import (
	"sort"
	"sync"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/logger"
)

// Creator constructs a gateway from its configuration.
type Creator func(cfg *config.Config, log logger.Logger) (Gateway, error)

// Registry maps gateway names to creators. Each facade owns its own registry;
// there is no process-wide instance.
type Registry struct {
	creators map[string]Creator
	logger   logger.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		creators: make(map[string]Creator),
		logger:   logger.OrDiscard(log),
	}
}

// Register adds a creator. Registering a name twice is an error; use Extend
// to replace one.
func (r *Registry) Register(name string, creator Creator) error {
	if name == "" || creator == nil {
		return errors.New(errors.ErrInvalidArgument, "gateway name and creator are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.creators[name]; exists {
		return errors.Newf(errors.ErrAlreadyRegistered, "gateway %s already registered", name).WithName(name)
	}
	r.creators[name] = creator
	r.logger.Debug("Gateway creator registered", "gateway", name)
	return nil
}

// Extend registers creator under name, replacing any existing creator.
func (r *Registry) Extend(name string, creator Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creators[name] = creator
	r.logger.Debug("Gateway creator extended", "gateway", name)
}

// Lookup returns the creator registered for name
func (r *Registry) Lookup(name string) (Creator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creator, ok := r.creators[name]
	return creator, ok
}

// Create builds a new gateway instance. Unknown names are an InvalidArgument
// error, as is a creator that returns no gateway.
func (r *Registry) Create(name string, cfg *config.Config) (Gateway, error) {
	creator, ok := r.Lookup(name)
	if !ok {
		return nil, errors.Newf(errors.ErrInvalidArgument, "gateway %q not supported", name).WithName(name)
	}

	gw, err := creator(cfg, r.logger.With("gateway", name))
	if err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, errors.Newf(errors.ErrInvalidArgument, "creator for gateway %q returned no gateway", name).WithName(name)
	}
	return gw, nil
}

// Names returns the registered gateway names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
