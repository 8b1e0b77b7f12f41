package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/rs/zerolog/log"
)

// SimulationHandler sets and clears the admin simulation cookie.
// Only sessions whose pre-simulation identity is admin may start a
// simulation.
type SimulationHandler struct {
	sessions *Sessions
	secure   bool
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(sessions *Sessions, secure bool) *SimulationHandler {
	return &SimulationHandler{sessions: sessions, secure: secure}
}

// Set validates the directive and stores it in the simulation cookie
func (h *SimulationHandler) Set(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// The original identity must be admin: an active simulation does
	// not grant the right to start another.
	isAdmin := sess.IsAdmin
	if sess.Simulation != nil {
		isAdmin = sess.Simulation.OriginalIsAdmin
	}
	if !isAdmin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	directive, err := session.ParseDirective(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.SimulationCookieName,
		Value:    string(body),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(4 * time.Hour),
	})

	log.Info().
		Str("type", directive.Kind).
		Str("admin_user_id", sess.UserID).
		Msg("Admin simulation started")
	w.WriteHeader(http.StatusNoContent)
}

// Clear removes the simulation cookie
func (h *SimulationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.SimulationCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
