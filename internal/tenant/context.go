package tenant

import (
	"context"
	"net/http"

	"github.com/churchhub/platform-gateway/internal/models"
)

// Forwarded request headers. Downstream readers treat the absence of
// HeaderTenantID as single-tenant mode.
const (
	HeaderTenantID           = "x-tenant-id"
	HeaderTenantSlug         = "x-tenant-slug"
	HeaderTenantName         = "x-tenant-name"
	HeaderTenantMPDomain     = "x-tenant-mp-domain"
	HeaderTenantMPClientID   = "x-tenant-mp-client-id"
	HeaderTenantLogoURL      = "x-tenant-logo-url"
	HeaderTenantPrimaryColor = "x-tenant-primary-color"
)

// Context is the request-scoped tenant identity produced by the
// resolver. It is constructed once per request from the durable
// Tenant record and never mutated.
type Context struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	MPDomain     string `json:"mpDomain"`
	MPClientID   string `json:"mpClientId"`
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`

	// MPClientSecret rides along for server-side token exchange but
	// is never serialized into forwarded headers or JSON.
	MPClientSecret string `json:"-"`
}

// NewContext builds a request-scoped tenant context from a Tenant record
func NewContext(t *models.Tenant) *Context {
	return &Context{
		ID:             t.ID.String(),
		Slug:           t.Slug,
		Name:           t.Name,
		MPDomain:       t.MPDomain,
		MPClientID:     t.MPClientID,
		MPClientSecret: t.MPClientSecret,
		LogoURL:        t.LogoURL,
		PrimaryColor:   t.PrimaryColor,
	}
}

// SetHeaders writes the forwarded tenant headers onto h
func (tc *Context) SetHeaders(h http.Header) {
	h.Set(HeaderTenantID, tc.ID)
	h.Set(HeaderTenantSlug, tc.Slug)
	h.Set(HeaderTenantName, tc.Name)
	h.Set(HeaderTenantMPDomain, tc.MPDomain)
	h.Set(HeaderTenantMPClientID, tc.MPClientID)
	h.Set(HeaderTenantLogoURL, tc.LogoURL)
	h.Set(HeaderTenantPrimaryColor, tc.PrimaryColor)
}

type contextKey struct{}

// WithContext attaches a resolved tenant to the request context
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the resolved tenant from the request context.
// Returns (nil, false) in single-tenant mode.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok && tc != nil
}
