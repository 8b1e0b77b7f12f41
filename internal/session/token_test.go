package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour, false)

	in := &Claims{
		AccessToken:     "at",
		RefreshToken:    "rt",
		AccessExpiresAt: time.Now().Add(time.Hour).Unix(),
		Email:           "pastor@grace.org",
		FirstName:       "Pat",
		LastName:        "Smith",
	}
	in.Subject = "user-guid"

	signed, err := codec.Mint(in)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	out, err := codec.Parse(signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if out.Subject != "user-guid" || out.AccessToken != "at" || out.RefreshToken != "rt" ||
		out.Email != "pastor@grace.org" || out.FirstName != "Pat" {
		t.Errorf("claims did not survive the round trip: %+v", out)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenCodec("secret-a", time.Hour, false).Mint(&Claims{})
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := NewTokenCodec("secret-b", time.Hour, false).Parse(signed); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestReadRequestCookieFallback(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour, false)
	claims := &Claims{}
	claims.Subject = "sub-1"
	signed, err := codec.Mint(claims)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	// Secure name first
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SecureCookieName, Value: signed})
	if got, err := codec.ReadRequest(req); err != nil || got.Subject != "sub-1" {
		t.Errorf("secure cookie read failed: %v", err)
	}

	// Plain name fallback
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	if got, err := codec.ReadRequest(req); err != nil || got.Subject != "sub-1" {
		t.Errorf("plain cookie fallback failed: %v", err)
	}

	// Garbage on the secure name falls back to the plain name
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SecureCookieName, Value: "garbage"})
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	if got, err := codec.ReadRequest(req); err != nil || got.Subject != "sub-1" {
		t.Errorf("fallback past invalid secure cookie failed: %v", err)
	}

	// Nothing at all
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := codec.ReadRequest(req); err != ErrNoToken {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestWriteCookieRespectsSecurePolicy(t *testing.T) {
	rec := httptest.NewRecorder()
	NewTokenCodec("secret", time.Hour, true).WriteCookie(rec, "tok")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SecureCookieName || !cookies[0].Secure {
		t.Errorf("secure codec wrote %+v", cookies)
	}

	rec = httptest.NewRecorder()
	NewTokenCodec("secret", time.Hour, false).WriteCookie(rec, "tok")
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Errorf("dev codec wrote %+v", cookies)
	}
}
