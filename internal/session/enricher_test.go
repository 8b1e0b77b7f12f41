package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/churchhub/platform-gateway/internal/mp"
)

// fakeMP stubs the MinistryPlatform token, procedure and table APIs
type fakeMP struct {
	t *testing.T
	// profiles maps user GUID to the inner procedure payload
	profiles map[string]mp.UserAuthData
	// userGUIDByContact backs the dp_Users lookup
	userGUIDByContact map[string]string

	failProc         bool
	failRefresh      bool
	omitRefreshToken bool
	refreshCalls     int
}

func (f *fakeMP) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/connect/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "service-token",
				"expires_in":   3600,
			})
		case "refresh_token":
			f.refreshCalls++
			if f.failRefresh {
				http.Error(w, "invalid_grant", http.StatusBadRequest)
				return
			}
			resp := map[string]any{
				"access_token": "refreshed-access",
				"expires_in":   3600,
			}
			if !f.omitRefreshToken {
				resp["refresh_token"] = "rotated-refresh"
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "unsupported_grant_type", http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/ministryplatformapi/procs/api_TheHub_GetUserProfile_JSON", func(w http.ResponseWriter, r *http.Request) {
		if f.failProc {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		guid, _ := params["@UserGUID"].(string)
		data, ok := f.profiles[guid]
		if !ok {
			data = mp.UserAuthData{}
		}
		inner, err := json.Marshal(data)
		if err != nil {
			f.t.Fatalf("marshal payload: %v", err)
		}
		// The procedure returns its payload as a JSON string inside
		// the first row of the first result set.
		json.NewEncoder(w).Encode([][]map[string]string{{{"JsonResult": string(inner)}}})
	})

	mux.HandleFunc("/ministryplatformapi/tables/dp_Users", func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		rows := []map[string]string{}
		for contactID, guid := range f.userGUIDByContact {
			if filter == fmt.Sprintf("Contact_ID=%s", contactID) {
				rows = append(rows, map[string]string{"User_GUID": guid, "Display_Name": "Someone"})
			}
		}
		json.NewEncoder(w).Encode(rows)
	})

	return mux
}

func newTestEnricher(t *testing.T, f *fakeMP) (*Enricher, *mp.Client, func()) {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	client := mp.NewClient(mp.Config{
		Domain:       "stub.example.org",
		ClientID:     "client",
		ClientSecret: "secret",
		FileURL:      "https://files.example.org",
		BaseURL:      srv.URL,
	})
	return NewEnricher(42), client, srv.Close
}

func adminProfile(guid string) mp.UserAuthData {
	return mp.UserAuthData{
		User: &mp.UserRecord{
			ContactID: 100,
			UserID:    200,
			UserGUID:  guid,
			FirstName: "Pat",
			LastName:  "Smith",
			Email:     "pat@grace.org",
		},
		IsAdmin: true,
		Roles:   []string{"Staff", "Admins"},
	}
}

func signInClaims() *Claims {
	c := &Claims{
		AccessToken:     "access",
		RefreshToken:    "refresh",
		AccessExpiresAt: time.Now().Add(time.Hour).Unix(),
		Email:           "signin@grace.org",
		FirstName:       "Sign",
		LastName:        "In",
	}
	c.Subject = "guid-1"
	return c
}

func TestEnrichAppliesProfile(t *testing.T) {
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	sess, refreshed, err := e.Enrich(context.Background(), client, signInClaims(), "")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if refreshed {
		t.Error("valid token must not trigger a refresh")
	}
	if sess.FirstName != "Pat" || sess.LastName != "Smith" || sess.Email != "pat@grace.org" {
		t.Errorf("profile not applied: %+v", sess)
	}
	if !sess.IsAdmin || len(sess.Roles) != 2 {
		t.Errorf("authorization state not applied: %+v", sess)
	}
	if sess.ContactID != "100" || sess.UserID != "200" {
		t.Errorf("ids not applied: %+v", sess)
	}
	if sess.Simulation != nil {
		t.Error("no simulation cookie, no simulation record")
	}
}

func TestEnrichRefreshesExpiredToken(t *testing.T) {
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	claims := signInClaims()
	oldExpiry := time.Now().Add(-time.Minute).Unix()
	claims.AccessExpiresAt = oldExpiry

	_, refreshed, err := e.Enrich(context.Background(), client, claims, "")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !refreshed {
		t.Fatal("expired token with refresh token must refresh")
	}
	if claims.AccessToken != "refreshed-access" {
		t.Errorf("access token = %q", claims.AccessToken)
	}
	if claims.AccessExpiresAt <= oldExpiry {
		t.Errorf("new expiry %d not after old %d", claims.AccessExpiresAt, oldExpiry)
	}
	if claims.RefreshToken != "rotated-refresh" {
		t.Errorf("rotated refresh token not stored: %q", claims.RefreshToken)
	}
}

func TestEnrichKeepsRefreshTokenWhenProviderOmitsIt(t *testing.T) {
	f := &fakeMP{
		profiles:         map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")},
		omitRefreshToken: true,
	}
	e, client, done := newTestEnricher(t, f)
	defer done()

	claims := signInClaims()
	claims.AccessExpiresAt = time.Now().Add(-time.Minute).Unix()

	if _, _, err := e.Enrich(context.Background(), client, claims, ""); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if claims.RefreshToken != "refresh" {
		t.Errorf("refresh token must be preserved, got %q", claims.RefreshToken)
	}
}

func TestEnrichKeepsStaleTokenOnRefreshFailure(t *testing.T) {
	f := &fakeMP{
		profiles:    map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")},
		failRefresh: true,
	}
	e, client, done := newTestEnricher(t, f)
	defer done()

	claims := signInClaims()
	claims.AccessExpiresAt = time.Now().Add(-time.Minute).Unix()

	sess, refreshed, err := e.Enrich(context.Background(), client, claims, "")
	if err != nil {
		t.Fatalf("refresh failure must not fail the session: %v", err)
	}
	if refreshed {
		t.Error("failed refresh must not report a claims change")
	}
	if claims.AccessToken != "access" || claims.RefreshToken != "refresh" {
		t.Errorf("stale token must be kept: %+v", claims)
	}
	if sess == nil || sess.Email == "" {
		t.Error("session must still resolve")
	}
}

func TestEnrichDefaultsWhenProfileFetchFails(t *testing.T) {
	f := &fakeMP{failProc: true}
	e, client, done := newTestEnricher(t, f)
	defer done()

	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), "")
	if err != nil {
		t.Fatalf("profile failure must not fail the session: %v", err)
	}
	if sess.IsAdmin {
		t.Error("isAdmin must default to false")
	}
	if sess.Roles == nil || len(sess.Roles) != 0 {
		t.Errorf("roles must be an empty array, got %#v", sess.Roles)
	}
	if sess.FirstName != "Sign" || sess.LastName != "In" || sess.Email != "signin@grace.org" {
		t.Errorf("sign-in values must back the session: %+v", sess)
	}
}

func TestEnrichDefaultsWhenUserMissing(t *testing.T) {
	// Procedure answers but finds no user record for the subject
	f := &fakeMP{profiles: map[string]mp.UserAuthData{}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), "")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if sess.IsAdmin || len(sess.Roles) != 0 {
		t.Errorf("missing user must resolve to safe defaults: %+v", sess)
	}
	if sess.Email != "signin@grace.org" {
		t.Errorf("email fallback missing: %q", sess.Email)
	}
}

func TestEnrichRoleOverrideSimulation(t *testing.T) {
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	cookie := `{"type":"roles","roles":["X"],"isAdmin":true}`
	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), cookie)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if len(sess.Roles) != 1 || sess.Roles[0] != "X" {
		t.Errorf("roles = %v, want [X]", sess.Roles)
	}
	if !sess.IsAdmin {
		t.Error("overlay isAdmin=true not applied")
	}
	if sess.Simulation == nil {
		t.Fatal("simulation record missing")
	}
	if !sess.Simulation.OriginalIsAdmin {
		t.Error("original admin flag must be preserved regardless of overlay")
	}
	if len(sess.Simulation.OriginalRoles) != 2 {
		t.Errorf("original roles not preserved: %v", sess.Simulation.OriginalRoles)
	}
	if sess.Simulation.OriginalUserID != "guid-1" {
		t.Errorf("original user id = %q, want the admin's subject", sess.Simulation.OriginalUserID)
	}
}

func TestEnrichImpersonateUnknownContact(t *testing.T) {
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	cookie := `{"type":"impersonate","contactId":9999}`
	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), cookie)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if sess.IsAdmin {
		t.Error("impersonating a contact with no user record must drop admin")
	}
	if len(sess.Roles) != 0 {
		t.Errorf("roles = %v, want empty", sess.Roles)
	}
	if sess.Simulation == nil {
		t.Fatal("simulation record must still be attached")
	}
	if sess.Simulation.ContactID != "9999" || !sess.Simulation.OriginalIsAdmin {
		t.Errorf("simulation record incomplete: %+v", sess.Simulation)
	}
}

func TestEnrichImpersonateResolvedContact(t *testing.T) {
	target := mp.UserAuthData{
		User:    &mp.UserRecord{ContactID: 300, UserID: 400, UserGUID: "guid-2"},
		IsAdmin: false,
		Roles:   []string{"Volunteers"},
	}
	f := &fakeMP{
		profiles:          map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1"), "guid-2": target},
		userGUIDByContact: map[string]string{"300": "guid-2"},
	}
	e, client, done := newTestEnricher(t, f)
	defer done()

	cookie := `{"type":"impersonate","contactId":300}`
	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), cookie)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if sess.IsAdmin {
		t.Error("impersonated identity is not admin")
	}
	if len(sess.Roles) != 1 || sess.Roles[0] != "Volunteers" {
		t.Errorf("roles = %v, want impersonated roles", sess.Roles)
	}
	if sess.Simulation == nil || !sess.Simulation.OriginalIsAdmin {
		t.Errorf("original identity lost: %+v", sess.Simulation)
	}
}

func TestEnrichIgnoresSimulationForNonAdmins(t *testing.T) {
	member := mp.UserAuthData{
		User:  &mp.UserRecord{ContactID: 100, UserID: 200, UserGUID: "guid-1"},
		Roles: []string{"Members"},
	}
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": member}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	cookie := `{"type":"roles","roles":["Admins"],"isAdmin":true}`
	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), cookie)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if sess.Simulation != nil {
		t.Error("non-admin sessions must never evaluate simulations")
	}
	if sess.IsAdmin || len(sess.Roles) != 1 || sess.Roles[0] != "Members" {
		t.Errorf("non-admin session altered: %+v", sess)
	}
}

func TestEnrichMalformedSimulationCookie(t *testing.T) {
	f := &fakeMP{profiles: map[string]mp.UserAuthData{"guid-1": adminProfile("guid-1")}}
	e, client, done := newTestEnricher(t, f)
	defer done()

	sess, _, err := e.Enrich(context.Background(), client, signInClaims(), "not json")
	if err != nil {
		t.Fatalf("malformed cookie must not fail the session: %v", err)
	}
	if sess.Simulation != nil {
		t.Error("malformed cookie must be rejected, not applied")
	}
	if !sess.IsAdmin {
		t.Error("rejected cookie must leave the session untouched")
	}
}
