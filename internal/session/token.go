package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session token cookie names. Production sets the __Secure- prefixed
// cookie; local development over plain HTTP cannot, so reads try the
// secure name first and fall back to the plain one. Falling back is
// normal, not an error condition.
const (
	SecureCookieName = "__Secure-churchhub.session-token"
	CookieName       = "churchhub.session-token"
)

// SimulationCookieName holds the admin simulation descriptor,
// server-side only and separate from the session token.
const SimulationCookieName = "admin-simulation"

// ErrNoToken is returned when neither session cookie carries a valid token
var ErrNoToken = errors.New("no session token")

// Claims is the signed session token payload. OAuth tokens and the
// identity captured at sign-in live here. Authorization state
// (admin flag, roles) never does; it is re-fetched on every
// session read.
type Claims struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	// AccessExpiresAt is the unix expiry of the provider access
	// token, distinct from the session token's own expiry.
	AccessExpiresAt int64  `json:"expiresAt"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
	secure bool
}

// NewTokenCodec creates a session token codec. secure controls
// whether the __Secure- cookie variant is written.
func NewTokenCodec(secret string, maxAge time.Duration, secure bool) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), maxAge: maxAge, secure: secure}
}

// Mint signs a new session token
func (c *TokenCodec) Mint(claims *Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.maxAge))

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token string and returns its claims
func (c *TokenCodec) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// ReadRequest extracts and verifies the session token from a request,
// trying the secure cookie name first and the plain name second.
func (c *TokenCodec) ReadRequest(r *http.Request) (*Claims, error) {
	for _, name := range []string{SecureCookieName, CookieName} {
		cookie, err := r.Cookie(name)
		if err != nil {
			continue
		}
		claims, err := c.Parse(cookie.Value)
		if err != nil {
			continue
		}
		return claims, nil
	}
	return nil, ErrNoToken
}

// cookieName returns the cookie name matching the secure policy
func (c *TokenCodec) cookieName() string {
	if c.secure {
		return SecureCookieName
	}
	return CookieName
}

// WriteCookie sets the session cookie for a freshly minted token
func (c *TokenCodec) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(c.maxAge),
	})
}

// ClearCookies expires both session cookie variants and the
// simulation cookie.
func (c *TokenCodec) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{SecureCookieName, CookieName, SimulationCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}
