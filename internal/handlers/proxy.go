package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/churchhub/platform-gateway/internal/tenant"
	"github.com/rs/zerolog/log"
)

// NewAppProxy builds the terminal handler for forwarded requests.
// With an upstream configured it reverse-proxies to the web app,
// carrying the x-tenant-* headers the middleware set on the request.
// Without one it serves a minimal placeholder so the gateway can run
// standalone in development.
func NewAppProxy(upstream string) (http.Handler, error) {
	if upstream == "" {
		return http.HandlerFunc(placeholder), nil
	}

	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", upstream, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream proxy error")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	return proxy, nil
}

func placeholder(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "path": r.URL.Path}
	if tc, ok := tenant.FromContext(r.Context()); ok {
		resp["tenant"] = tc.Slug
	}
	writeJSON(w, http.StatusOK, resp)
}
