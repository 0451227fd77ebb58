package strategy

import (
	"sort"
	"sync"

	"github.com/kart-io/easysms/pkg/errors"
)

const (
	NameOrder  = "order"
	NameRandom = "random"
)

// Registry resolves strategy identifiers and caches one instance per name.
type Registry struct {
	factories map[string]func() Strategy
	instances map[string]Strategy
	mu        sync.Mutex
}

// NewRegistry returns a registry with the built-in "order" and "random"
// strategies. degraded is passed to Random; it may be nil.
func NewRegistry(degraded func(error)) *Registry {
	return &Registry{
		factories: map[string]func() Strategy{
			NameOrder:  func() Strategy { return Order{} },
			NameRandom: func() Strategy { return Random{Degraded: degraded} },
		},
		instances: make(map[string]Strategy),
	}
}

// Register adds or replaces a strategy factory. A cached instance for the same
// name is dropped.
func (r *Registry) Register(name string, factory func() Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	delete(r.instances, name)
}

// Get returns the cached strategy for name, creating it on first use. An
// empty name selects "order". Unknown names are an InvalidArgument error.
func (r *Registry) Get(name string) (Strategy, error) {
	if name == "" {
		name = NameOrder
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.instances[name]; ok {
		return s, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrInvalidArgument, "unsupported strategy %q", name).WithName(name)
	}
	s := factory()
	r.instances[name] = s
	return s, nil
}

// Names returns the registered identifiers, sorted
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
