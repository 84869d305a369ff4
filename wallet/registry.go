package wallet

import "sync"

// Info describes a wallet the user can pick. Provider is nil when the
// wallet is not installed.
type Info struct {
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Provider Provider `json:"-"`
}

// Installed reports whether the wallet has a capability handle.
func (i Info) Installed() bool {
	return i.Provider != nil
}

// Registry lists wallets in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []Info
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry lists the wallets SolStream supports, none installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Phantom", "/wallets/phantom.png", nil)
	r.Register("Solflare", "/wallets/solflare.png", nil)
	r.Register("Backpack", "/wallets/backpack.png", nil)
	return r
}

// Register adds a wallet, or replaces the icon and provider of an existing
// one in place.
func (r *Registry) Register(name, icon string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].Name == name {
			r.entries[i].Icon = icon
			r.entries[i].Provider = p
			return
		}
	}
	r.entries = append(r.entries, Info{Name: name, Icon: icon, Provider: p})
}

// Lookup returns the provider for name. ok is false when the wallet is
// unknown or not installed.
func (r *Registry) Lookup(name string) (p Provider, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Name == name {
			return e.Provider, e.Provider != nil
		}
	}
	return nil, false
}

// Wallets returns a snapshot of the registry.
func (r *Registry) Wallets() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, len(r.entries))
	copy(out, r.entries)
	return out
}
