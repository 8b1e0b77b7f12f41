package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/churchhub/platform-gateway/internal/session"
)

// newSessionStack wires a Sessions resolver against a stub MP server
func newSessionStack(t *testing.T) (*Sessions, *session.TokenCodec) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/connect/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		resp := map[string]any{"access_token": "svc", "expires_in": 3600}
		if r.PostForm.Get("grant_type") == "refresh_token" {
			resp["access_token"] = "refreshed"
			resp["refresh_token"] = "rotated"
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/ministryplatformapi/procs/api_TheHub_GetUserProfile_JSON", func(w http.ResponseWriter, r *http.Request) {
		inner := `{"User":{"ContactID":1,"UserID":2,"UserGUID":"guid-1","FirstName":"Pat","LastName":"Smith","Email":"pat@grace.org"},"IsAdmin":false,"Roles":["Members"]}`
		json.NewEncoder(w).Encode([][]map[string]string{{{"JsonResult": inner}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	codec := session.NewTokenCodec("test-secret", time.Hour, false)
	enricher := session.NewEnricher(42)
	clients := mp.NewFactory(mp.Config{Domain: "stub.example.org", ClientID: "c", ClientSecret: "s", BaseURL: srv.URL})
	return NewSessions(codec, enricher, clients), codec
}

func mintCookie(t *testing.T, codec *session.TokenCodec, expiresAt int64) *http.Cookie {
	t.Helper()
	claims := &session.Claims{
		AccessToken:     "access",
		RefreshToken:    "refresh",
		AccessExpiresAt: expiresAt,
		Email:           "pat@grace.org",
	}
	claims.Subject = "guid-1"
	signed, err := codec.Mint(claims)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: signed}
}

func TestSessionEndpointUnauthenticated(t *testing.T) {
	sessions, _ := newSessionStack(t)
	h := NewSessionHandler(sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionEndpointReturnsEnrichedSession(t *testing.T) {
	sessions, codec := newSessionStack(t)
	h := NewSessionHandler(sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(mintCookie(t, codec, time.Now().Add(time.Hour).Unix()))
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var sess models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if sess.FirstName != "Pat" || sess.ContactID != "1" {
		t.Errorf("profile not in session: %+v", sess)
	}
	if sess.Roles == nil {
		t.Error("roles must never be null")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("valid token must not trigger a cookie re-issue")
	}
}

func TestSessionEndpointReissuesCookieAfterRefresh(t *testing.T) {
	sessions, codec := newSessionStack(t)
	h := NewSessionHandler(sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(mintCookie(t, codec, time.Now().Add(-time.Minute).Unix()))
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var reissued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			reissued = c
		}
	}
	if reissued == nil {
		t.Fatal("refresh must re-issue the session cookie")
	}

	claims, err := codec.Parse(reissued.Value)
	if err != nil {
		t.Fatalf("re-issued cookie does not parse: %v", err)
	}
	if claims.AccessToken != "refreshed" || claims.RefreshToken != "rotated" {
		t.Errorf("re-issued claims not updated: %+v", claims)
	}
}
