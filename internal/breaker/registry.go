package breaker

import "sync"

// Registry hands out one breaker per name, creating on first use.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults Config
	overrides map[string]Config
}

// NewRegistry creates a registry with the given default config.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		defaults:  defaults,
		overrides: make(map[string]Config),
	}
}

// SetOverride installs a per-name config used when that breaker is first
// created. Has no effect on breakers that already exist.
func (r *Registry) SetOverride(name string, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = config
}

// Get returns the breaker for name, creating it if needed.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	config := r.defaults
	if override, ok := r.overrides[name]; ok {
		config = override
	}
	b := New(name, config)
	r.breakers[name] = b
	return b
}

// Snapshots returns a point-in-time view of every registered breaker.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		snaps = append(snaps, b.Snapshot())
	}
	return snaps
}
