package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/churchhub/platform-gateway/internal/tenant"
	"github.com/rs/zerolog/log"
)

// Sessions resolves the enriched session for API handlers. It reads
// the token cookie pair, runs enrichment against the request tenant's
// MP client, and re-issues the cookie when the provider token was
// refreshed.
type Sessions struct {
	codec    *session.TokenCodec
	enricher *session.Enricher
	clients  *mp.Factory
}

// NewSessions creates the shared session resolver
func NewSessions(codec *session.TokenCodec, enricher *session.Enricher, clients *mp.Factory) *Sessions {
	return &Sessions{codec: codec, enricher: enricher, clients: clients}
}

// Resolve returns the enriched session for a request, or
// session.ErrNoToken when the request carries no valid token.
func (s *Sessions) Resolve(w http.ResponseWriter, r *http.Request) (*models.Session, error) {
	claims, err := s.codec.ReadRequest(r)
	if err != nil {
		return nil, err
	}

	tc, _ := tenant.FromContext(r.Context())
	client := s.clients.ClientFor(tc)

	simCookie := ""
	if c, err := r.Cookie(session.SimulationCookieName); err == nil {
		simCookie = c.Value
	}

	sess, refreshed, err := s.enricher.Enrich(r.Context(), client, claims, simCookie)
	if err != nil {
		return nil, err
	}

	if refreshed {
		if signed, err := s.codec.Mint(claims); err == nil {
			s.codec.WriteCookie(w, signed)
		} else {
			log.Warn().Err(err).Msg("Failed to re-issue session cookie after refresh")
		}
	}

	return sess, nil
}

// Client returns the MP client for the request tenant
func (s *Sessions) Client(r *http.Request) *mp.Client {
	tc, _ := tenant.FromContext(r.Context())
	return s.clients.ClientFor(tc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
