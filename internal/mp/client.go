package mp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/churchhub/platform-gateway/internal/metrics"
	"github.com/rs/zerolog/log"
)

// callTimeout bounds every outbound MinistryPlatform call. Timeouts
// are treated as call failure and trigger the caller's fallback
// behavior, never an indefinite hang.
const callTimeout = 5 * time.Second

// Config identifies one MinistryPlatform instance. In multi-tenant
// mode it comes from the tenant record; in single-tenant mode from
// environment configuration.
type Config struct {
	// Domain is the MP hostname, e.g. "my.church.org"
	Domain       string
	ClientID     string
	ClientSecret string
	// FileURL is the base URL for contact image files
	FileURL string
	// BaseURL overrides the https://<Domain> base when set, for
	// local stubs and tests.
	BaseURL string
}

// Client talks to one MinistryPlatform instance: its OAuth token
// endpoint, REST tables API, and stored procedures API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu           sync.Mutex
	serviceToken string
	serviceExp   time.Time
}

// NewClient creates a client for one MP instance
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return "https://" + c.cfg.Domain
}

// TokenResponse is the OAuth token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// AuthorizeURL builds the OAuth authorization URL for the sign-in redirect
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid offline_access http://www.thinkministry.com/dataplatform/scopes/all")
	q.Set("state", state)
	return c.baseURL() + "/oauth/connect/authorize?" + q.Encode()
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	return c.tokenRequest(ctx, form)
}

// RefreshToken exchanges a refresh token for a fresh access token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	tok, err := c.tokenRequest(ctx, form)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return tok, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/oauth/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, nil
}

// UserInfo is the OIDC userinfo response used at initial sign-in
type UserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// GetUserInfo fetches the OIDC userinfo claims for an access token
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL()+"/oauth/connect/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &info, nil
}

// serviceAccessToken returns a cached client-credentials token for
// the tables and procedures APIs, refreshing it when within a minute
// of expiry.
func (c *Client) serviceAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.serviceToken != "" && time.Now().Before(c.serviceExp.Add(-time.Minute)) {
		return c.serviceToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", "http://www.thinkministry.com/dataplatform/scopes/all")

	tok, err := c.tokenRequest(ctx, form)
	if err != nil {
		return "", fmt.Errorf("client credentials grant failed: %w", err)
	}

	c.serviceToken = tok.AccessToken
	c.serviceExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	log.Debug().Str("domain", c.cfg.Domain).Msg("Refreshed MP service token")
	return c.serviceToken, nil
}

// ImageURL builds a contact image URL from a file GUID
func (c *Client) ImageURL(guid string, thumbnail bool) string {
	if guid == "" || c.cfg.FileURL == "" {
		return ""
	}
	u := strings.TrimRight(c.cfg.FileURL, "/") + "/" + guid
	if thumbnail {
		u += "?$thumbnail=true"
	}
	return u
}
