package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/churchhub/platform-gateway/internal/cache"
	"github.com/churchhub/platform-gateway/internal/metrics"
	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/churchhub/platform-gateway/internal/repository"
	"github.com/rs/zerolog/log"
)

// ErrTenantNotFound is returned when a multi-tenant host does not map
// to any active tenant. It is terminal for the request: the caller
// must respond 404, never fall back.
var ErrTenantNotFound = errors.New("tenant not found")

// Mode classifies how a request host resolves to a tenant
type Mode string

const (
	// ModeSingleTenant means no tenant lookup: localhost or a nested
	// subdomain of the platform domain. The app falls back to static
	// environment configuration.
	ModeSingleTenant Mode = "single"
	// ModeSubdomain resolves the tenant by the <slug>.<platform domain> label
	ModeSubdomain Mode = "subdomain"
	// ModeCustomDomain resolves the tenant by an explicitly registered domain
	ModeCustomDomain Mode = "custom_domain"
)

// HostInfo is the result of classifying a raw Host header
type HostInfo struct {
	Mode Mode
	// Slug is set only in subdomain mode
	Slug string
	// Host is the hostname with any port stripped
	Host string
}

// ParseHost classifies a raw Host header (which may carry a port)
// against the platform base domain. It is a pure function of its
// inputs.
func ParseHost(hostport, baseDomain string) HostInfo {
	host := hostport
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	// Loopback hosts are always single-tenant development mode
	if host == "localhost" || host == "127.0.0.1" {
		return HostInfo{Mode: ModeSingleTenant, Host: host}
	}

	if strings.HasSuffix(host, "."+baseDomain) {
		slug := strings.TrimSuffix(host, "."+baseDomain)
		// Nested subdomains do not resolve to a tenant
		if slug == "" || strings.Contains(slug, ".") {
			return HostInfo{Mode: ModeSingleTenant, Host: host}
		}
		return HostInfo{Mode: ModeSubdomain, Slug: slug, Host: host}
	}

	return HostInfo{Mode: ModeCustomDomain, Host: host}
}

// Store is the read-only tenant lookup surface the resolver needs
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*models.Tenant, error)
}

// Resolver resolves request hosts to tenant contexts, consulting a
// short-TTL cache in front of the durable tenant store.
type Resolver struct {
	store      Store
	cache      cache.Cache
	baseDomain string
	cacheTTL   time.Duration
}

// NewResolver creates a new tenant resolver. cache may be nil to
// disable lookup caching.
func NewResolver(store Store, c cache.Cache, baseDomain string, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		store:      store,
		cache:      c,
		baseDomain: baseDomain,
		cacheTTL:   cacheTTL,
	}
}

// Resolve maps a raw Host header to a TenantContext. It returns
// (nil, nil) in single-tenant mode, ErrTenantNotFound when a
// multi-tenant host matches no active tenant, and propagates store
// errors as terminal.
func (r *Resolver) Resolve(ctx context.Context, hostport string) (*Context, error) {
	info := ParseHost(hostport, r.baseDomain)

	switch info.Mode {
	case ModeSingleTenant:
		metrics.TenantResolutions.WithLabelValues(string(ModeSingleTenant), "ok").Inc()
		return nil, nil

	case ModeSubdomain:
		tc, err := r.lookup(ctx, cache.TenantSlugKey(info.Slug), func() (*models.Tenant, error) {
			return r.store.GetBySlug(ctx, info.Slug)
		})
		return r.finish(ModeSubdomain, tc, err)

	default: // ModeCustomDomain
		tc, err := r.lookup(ctx, cache.TenantDomainKey(info.Host), func() (*models.Tenant, error) {
			return r.store.GetByDomain(ctx, info.Host)
		})
		return r.finish(ModeCustomDomain, tc, err)
	}
}

func (r *Resolver) finish(mode Mode, tc *Context, err error) (*Context, error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		metrics.TenantResolutions.WithLabelValues(string(mode), "not_found").Inc()
		return nil, err
	case err != nil:
		metrics.TenantResolutions.WithLabelValues(string(mode), "error").Inc()
		return nil, err
	default:
		metrics.TenantResolutions.WithLabelValues(string(mode), "ok").Inc()
		return tc, nil
	}
}

// cacheRecord is the cache serialization of a resolved tenant. It is
// separate from Context: the Context json tags drop the client secret
// so it never leaks into headers or API responses, but the secret must
// survive the cache round trip or every cache hit would hand out a
// client that cannot authenticate.
type cacheRecord struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	MPDomain       string `json:"mpDomain"`
	MPClientID     string `json:"mpClientId"`
	MPClientSecret string `json:"mpClientSecret"`
	LogoURL        string `json:"logoUrl,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
}

func newCacheRecord(tc *Context) *cacheRecord {
	return &cacheRecord{
		ID:             tc.ID,
		Slug:           tc.Slug,
		Name:           tc.Name,
		MPDomain:       tc.MPDomain,
		MPClientID:     tc.MPClientID,
		MPClientSecret: tc.MPClientSecret,
		LogoURL:        tc.LogoURL,
		PrimaryColor:   tc.PrimaryColor,
	}
}

func (rec *cacheRecord) context() *Context {
	return &Context{
		ID:             rec.ID,
		Slug:           rec.Slug,
		Name:           rec.Name,
		MPDomain:       rec.MPDomain,
		MPClientID:     rec.MPClientID,
		MPClientSecret: rec.MPClientSecret,
		LogoURL:        rec.LogoURL,
		PrimaryColor:   rec.PrimaryColor,
	}
}

func (r *Resolver) lookup(ctx context.Context, key string, fetch func() (*models.Tenant, error)) (*Context, error) {
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, key); err == nil {
			var rec cacheRecord
			if err := json.Unmarshal(raw, &rec); err == nil {
				return rec.context(), nil
			}
			// Corrupt entry: drop it and fall through to the store
			_ = r.cache.Delete(ctx, key)
		}
	}

	t, err := fetch()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenant lookup failed: %w", err)
	}

	tc := NewContext(t)

	if r.cache != nil {
		if raw, err := json.Marshal(newCacheRecord(tc)); err == nil {
			if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to cache tenant lookup")
			}
		}
	}

	return tc, nil
}
