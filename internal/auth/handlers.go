package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/churchhub/platform-gateway/internal/tenant"
	"github.com/rs/zerolog/log"
)

const (
	stateCookie    = "oauth-state"
	callbackCookie = "post-auth-redirect"
)

// Handler serves the OAuth sign-in, callback and sign-out endpoints
type Handler struct {
	clients     *mp.Factory
	codec       *session.TokenCodec
	redirectURI string
	secure      bool
}

// NewHandler creates the auth handler. redirectURI is the externally
// visible callback URL registered with the identity provider.
func NewHandler(clients *mp.Factory, codec *session.TokenCodec, redirectURI string, secure bool) *Handler {
	return &Handler{
		clients:     clients,
		codec:       codec,
		redirectURI: redirectURI,
		secure:      secure,
	}
}

// SignIn redirects the browser to the tenant's identity provider
// authorize endpoint. The requested callbackUrl is held in a
// short-lived cookie for the callback to consume.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	tc, _ := tenant.FromContext(r.Context())
	client := h.clients.ClientFor(tc)

	state := randomState()
	h.setFlowCookie(w, stateCookie, state)

	callback := r.URL.Query().Get("callbackUrl")
	// Only relative paths are allowed as post-auth redirects
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") {
		callback = "/"
	}
	h.setFlowCookie(w, callbackCookie, url.QueryEscape(callback))

	http.Redirect(w, r, client.AuthorizeURL(h.redirectURI, state), http.StatusFound)
}

// Callback exchanges the authorization code for tokens, captures the
// initial identity from the userinfo endpoint, mints the session
// token and redirects to the original path.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" || !h.matchesCookie(r, stateCookie, state) {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	tc, _ := tenant.FromContext(r.Context())
	client := h.clients.ClientFor(tc)
	ctx := r.Context()

	tok, err := client.ExchangeCode(ctx, code, h.redirectURI)
	if err != nil {
		log.Error().Err(err).Msg("Code exchange failed")
		http.Error(w, "Sign-in failed", http.StatusBadGateway)
		return
	}

	info, err := client.GetUserInfo(ctx, tok.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("Userinfo fetch failed")
		http.Error(w, "Sign-in failed", http.StatusBadGateway)
		return
	}

	claims := &session.Claims{
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		IDToken:         tok.IDToken,
		AccessExpiresAt: time.Now().Unix() + tok.ExpiresIn,
		Email:           info.Email,
		Name:            info.Name,
		FirstName:       info.GivenName,
		LastName:        info.FamilyName,
	}
	claims.Subject = info.Sub

	signed, err := h.codec.Mint(claims)
	if err != nil {
		log.Error().Err(err).Msg("Failed to mint session token")
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}
	h.codec.WriteCookie(w, signed)
	h.clearFlowCookies(w)

	dest := "/"
	if c, err := r.Cookie(callbackCookie); err == nil {
		if unescaped, err := url.QueryUnescape(c.Value); err == nil &&
			strings.HasPrefix(unescaped, "/") && !strings.HasPrefix(unescaped, "//") {
			dest = unescaped
		}
	}

	log.Info().Str("sub", info.Sub).Msg("User signed in")
	http.Redirect(w, r, dest, http.StatusFound)
}

// SignOut destroys the session cookies
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.codec.ClearCookies(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) matchesCookie(r *http.Request, name, want string) bool {
	c, err := r.Cookie(name)
	return err == nil && c.Value == want
}

func (h *Handler) setFlowCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
}

func (h *Handler) clearFlowCookies(w http.ResponseWriter) {
	for _, name := range []string{stateCookie, callbackCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
