package middleware

import (
	"errors"
	"net/http"

	"github.com/churchhub/platform-gateway/internal/tenant"
	"github.com/rs/zerolog/log"
)

// TenantResolver resolves the request host to a tenant, forwards the
// x-tenant-* headers to downstream handlers, and attaches the tenant
// context. Single-tenant requests pass through without headers. An
// unknown multi-tenant host is terminal: 404, no fallback. Store
// failures are terminal too.
func TenantResolver(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, err := resolver.Resolve(r.Context(), r.Host)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					log.Warn().Str("host", r.Host).Msg("Tenant not found")
					http.Error(w, "Church not found", http.StatusNotFound)
					return
				}
				log.Error().Err(err).Str("host", r.Host).Msg("Tenant lookup failed")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if tc != nil {
				tc.SetHeaders(r.Header)
				r = r.WithContext(tenant.WithContext(r.Context(), tc))
			}

			next.ServeHTTP(w, r)
		})
	}
}
