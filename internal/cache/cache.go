package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TenantSlugKey builds the cache key for a tenant slug lookup
func TenantSlugKey(slug string) string {
	return "tenant:slug:" + slug
}

// TenantDomainKey builds the cache key for a custom domain lookup
func TenantDomainKey(domain string) string {
	return "tenant:domain:" + domain
}
