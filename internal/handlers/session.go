package handlers

import (
	"net/http"
)

// SessionHandler serves the enriched session to page code
type SessionHandler struct {
	sessions *Sessions
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get returns the enriched session for the current request. 401 when
// no valid session token is present.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
