package mp

import (
	"sync"

	"github.com/churchhub/platform-gateway/internal/tenant"
)

// Factory hands out MinistryPlatform clients per tenant, reusing them
// so the client-credentials service token is cached across requests.
type Factory struct {
	mu       sync.RWMutex
	clients  map[string]*Client // keyed by tenant ID
	defaults Config
	fallback *Client
}

// NewFactory creates a client factory. defaults is the single-tenant
// (environment) MP configuration.
func NewFactory(defaults Config) *Factory {
	return &Factory{
		clients:  make(map[string]*Client),
		defaults: defaults,
	}
}

// ClientFor returns the MP client for a resolved tenant, or the
// single-tenant default client when tc is nil.
func (f *Factory) ClientFor(tc *tenant.Context) *Client {
	if tc == nil || tc.MPDomain == "" {
		return f.defaultClient()
	}

	f.mu.RLock()
	client, exists := f.clients[tc.ID]
	f.mu.RUnlock()

	if exists {
		return client
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists := f.clients[tc.ID]; exists {
		return client
	}

	client = NewClient(Config{
		Domain:       tc.MPDomain,
		ClientID:     tc.MPClientID,
		ClientSecret: tc.MPClientSecret,
		FileURL:      f.defaults.FileURL,
		BaseURL:      f.defaults.BaseURL,
	})
	f.clients[tc.ID] = client
	return client
}

// Remove drops a tenant's cached client, e.g. after its credentials change
func (f *Factory) Remove(tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, tenantID)
}

func (f *Factory) defaultClient() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fallback == nil {
		f.fallback = NewClient(f.defaults)
	}
	return f.fallback
}
