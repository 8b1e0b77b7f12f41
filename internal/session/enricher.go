package session

import (
	"context"
	"strconv"
	"time"

	"github.com/churchhub/platform-gateway/internal/metrics"
	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/rs/zerolog/log"
)

// Enricher turns a validated session token into the full application
// session: refreshed provider tokens, profile and roles from
// MinistryPlatform, and the optional admin simulation overlay.
//
// Authorization state is re-fetched on every call; claims stored in
// the token are never trusted for admin/role decisions.
type Enricher struct {
	adminRoleID int
	now         func() time.Time
}

// NewEnricher creates a session enricher. adminRoleID is the security
// role that marks a user as platform admin (zero disables the check).
func NewEnricher(adminRoleID int) *Enricher {
	return &Enricher{
		adminRoleID: adminRoleID,
		now:         time.Now,
	}
}

// Enrich resolves the full session for a token against one tenant's
// MP client. simCookie is the raw admin-simulation cookie value, or
// empty. The returned bool reports whether claims were mutated by a
// token refresh, in which case the caller should re-issue the cookie.
//
// Enrich never fails outright for downstream errors: refresh failures
// keep the stale token, profile fetch failures fall back to the
// identity captured at sign-in with admin=false and no roles.
func (e *Enricher) Enrich(ctx context.Context, client *mp.Client, claims *Claims, simCookie string) (*models.Session, bool, error) {
	refreshed := e.refreshIfNeeded(ctx, client, claims)

	sess := &models.Session{
		Sub:       claims.Subject,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Email:     claims.Email,
		Roles:     []string{},
	}

	authData, err := client.GetUserProfile(ctx, claims.Subject, e.adminRoleID)
	switch {
	case err != nil:
		log.Error().Err(err).Str("sub", claims.Subject).Msg("Profile fetch failed, using sign-in defaults")
	case authData.User == nil:
		log.Warn().Str("sub", claims.Subject).Msg("No user record for subject, using sign-in defaults")
	default:
		e.applyProfile(sess, client, claims, authData)
	}

	if sess.IsAdmin && simCookie != "" {
		e.applySimulation(ctx, client, sess, simCookie)
	}

	if sess.Roles == nil {
		sess.Roles = []string{}
	}

	return sess, refreshed, nil
}

// refreshIfNeeded exchanges the refresh token when the access token
// has expired. On any failure the existing (expired) token is kept:
// the user stays signed in and the next read retries.
func (e *Enricher) refreshIfNeeded(ctx context.Context, client *mp.Client, claims *Claims) bool {
	if claims.AccessExpiresAt == 0 || e.now().Unix() < claims.AccessExpiresAt {
		return false
	}
	if claims.RefreshToken == "" {
		log.Debug().Str("sub", claims.Subject).Msg("Access token expired, no refresh token")
		return false
	}

	tok, err := client.RefreshToken(ctx, claims.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("sub", claims.Subject).Msg("Token refresh failed, keeping stale token")
		return false
	}

	claims.AccessToken = tok.AccessToken
	claims.AccessExpiresAt = e.now().Unix() + tok.ExpiresIn
	// Providers may rotate the refresh token or omit it; keep the old
	// one when omitted.
	if tok.RefreshToken != "" {
		claims.RefreshToken = tok.RefreshToken
	}
	return true
}

func (e *Enricher) applyProfile(sess *models.Session, client *mp.Client, claims *Claims, data *mp.UserAuthData) {
	u := data.User
	sess.ContactID = strconv.Itoa(u.ContactID)
	sess.UserID = strconv.Itoa(u.UserID)
	if u.FirstName != "" {
		sess.FirstName = u.FirstName
	}
	if u.LastName != "" {
		sess.LastName = u.LastName
	}
	if u.Email != "" {
		sess.Email = u.Email
	}
	sess.Nickname = u.Nickname
	sess.MobilePhone = u.MobilePhone
	sess.ImageURL = client.ImageURL(u.ImageGUID, true)
	if u.HouseholdID != 0 {
		sess.HouseholdID = strconv.Itoa(u.HouseholdID)
	}
	sess.IsAdmin = data.IsAdmin
	if data.Roles != nil {
		sess.Roles = data.Roles
	}
}

// applySimulation overlays the session with an admin simulation
// directive. Resolution errors never fail the session: the simulation
// record is still attached so the UI reflects the active simulation,
// but it resolves to a non-privileged overlay.
func (e *Enricher) applySimulation(ctx context.Context, client *mp.Client, sess *models.Session, simCookie string) {
	directive, err := ParseDirective(simCookie)
	if err != nil {
		log.Warn().Err(err).Msg("Rejecting malformed simulation cookie")
		return
	}

	// The original user id is the identity-provider subject, so the
	// admin's own identity can be restored whether or not the profile
	// fetch populated the numeric ids.
	original := models.Simulation{
		Type:            directive.Kind,
		OriginalUserID:  sess.Sub,
		OriginalRoles:   sess.Roles,
		OriginalIsAdmin: sess.IsAdmin,
	}

	switch directive.Kind {
	case models.SimulationRoles:
		sess.Simulation = &original
		sess.Roles = directive.Roles
		sess.IsAdmin = directive.IsAdmin
		metrics.SimulationsApplied.WithLabelValues(models.SimulationRoles).Inc()

	case models.SimulationImpersonate:
		original.ContactID = directive.ContactID
		sess.Simulation = &original

		// Default to a non-privileged overlay; upgraded below only
		// when the target resolves.
		sess.IsAdmin = false
		sess.Roles = []string{}

		guid, err := client.FindUserGUIDByContact(ctx, directive.ContactID)
		if err != nil {
			log.Error().Err(err).Str("contact_id", directive.ContactID).Msg("Impersonation directory lookup failed")
		} else if guid == "" {
			log.Info().Str("contact_id", directive.ContactID).Msg("Impersonating contact with no user record")
		} else {
			data, err := client.GetUserProfile(ctx, guid, e.adminRoleID)
			if err != nil {
				log.Error().Err(err).Str("contact_id", directive.ContactID).Msg("Impersonated profile fetch failed")
			} else if data.User != nil {
				sess.IsAdmin = data.IsAdmin
				if data.Roles != nil {
					sess.Roles = data.Roles
				}
			}
		}
		metrics.SimulationsApplied.WithLabelValues(models.SimulationImpersonate).Inc()
	}
}
