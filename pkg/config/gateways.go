package config

// Gateways is an ordered set of gateway name → Config. Iteration order is
// declaration order and is what the order strategy returns.
type Gateways struct {
	names   []string
	configs map[string]*Config
}

// NewGateways creates an empty gateway set.
func NewGateways() *Gateways {
	return &Gateways{configs: make(map[string]*Config)}
}

// Add appends a gateway, or replaces the config of an existing one in place.
func (g *Gateways) Add(name string, cfg *Config) *Gateways {
	if cfg == nil {
		cfg = NewConfig(nil)
	}
	if _, exists := g.configs[name]; !exists {
		g.names = append(g.names, name)
	}
	g.configs[name] = cfg
	return g
}

// Names returns the gateway names in declaration order.
func (g *Gateways) Names() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.names...)
}

// Len returns the number of gateways.
func (g *Gateways) Len() int {
	if g == nil {
		return 0
	}
	return len(g.names)
}

// Get returns the config of a gateway.
func (g *Gateways) Get(name string) (*Config, bool) {
	if g == nil {
		return nil, false
	}
	cfg, ok := g.configs[name]
	return cfg, ok
}

// Has reports whether name is part of the set.
func (g *Gateways) Has(name string) bool {
	_, ok := g.Get(name)
	return ok
}

// Filter keeps the gateways whose names are in allow, preserving order.
func (g *Gateways) Filter(allow []string) *Gateways {
	permitted := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		permitted[name] = struct{}{}
	}

	out := NewGateways()
	for _, name := range g.Names() {
		if _, ok := permitted[name]; ok {
			out.Add(name, g.configs[name])
		}
	}
	return out
}

// Select builds a set in the order of names, taking each config from g.
// Names missing from g get an empty Config.
func (g *Gateways) Select(names []string) *Gateways {
	out := NewGateways()
	for _, name := range names {
		cfg, _ := g.Get(name)
		out.Add(name, cfg)
	}
	return out
}
