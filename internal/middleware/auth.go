package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/churchhub/platform-gateway/internal/metrics"
	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/rs/zerolog/log"
)

// SignInPath is where unauthenticated protected requests are sent,
// with the original path preserved in the callbackUrl parameter.
const SignInPath = "/signin"

// publicPrefixes and publicPaths form the fixed allow-list: requests
// matching either skip token validation entirely (they still receive
// forwarded tenant headers).
var publicPrefixes = []string{"/api", "/_next", "/assets"}

var publicPaths = map[string]bool{
	"/":        true,
	SignInPath: true,
	"/403":     true,
	"/404":     true,
	"/500":     true,
	"/error":   true,
}

// IsPublicPath reports whether a request path bypasses the auth gate
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthGate validates the session token on protected paths. No valid
// token under either cookie name means a redirect to the sign-in
// page; any validation failure is treated the same way (fail closed,
// never fail open). Invocations share no mutable state.
func AuthGate(codec *session.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				metrics.AuthDecisions.WithLabelValues("public").Inc()
				next.ServeHTTP(w, r)
				return
			}

			if _, err := codec.ReadRequest(r); err != nil {
				log.Debug().Str("path", r.URL.Path).Msg("No session token, redirecting to signin")
				metrics.AuthDecisions.WithLabelValues("redirected").Inc()
				redirectToSignIn(w, r)
				return
			}

			metrics.AuthDecisions.WithLabelValues("forwarded").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	q := url.Values{}
	q.Set("callbackUrl", r.URL.Path)
	http.Redirect(w, r, SignInPath+"?"+q.Encode(), http.StatusFound)
}
