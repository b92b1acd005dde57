package provider

import (
	"github.com/omnisphere/auth-service/internal/domain"
)

// Registry holds all configured provider clients and allows lookup by
// validated provider name. It performs no auth logic itself.
type Registry struct {
	clients map[domain.Provider]Client
}

// NewRegistry registers the given clients by provider name.
func NewRegistry(list ...Client) *Registry {
	m := make(map[domain.Provider]Client, len(list))
	for _, c := range list {
		m[c.Name()] = c
	}
	return &Registry{clients: m}
}

// Get returns the client for p, or unsupported_provider when none is
// configured. Validation happens here, before any network work.
func (r *Registry) Get(p domain.Provider) (Client, error) {
	c, ok := r.clients[p]
	if !ok {
		return nil, domain.ErrUnsupportedProvider(string(p))
	}
	return c, nil
}
