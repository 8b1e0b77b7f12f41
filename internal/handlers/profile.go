package handlers

import (
	"net/http"

	"github.com/churchhub/platform-gateway/internal/mp"
	"github.com/churchhub/platform-gateway/internal/session"
	"github.com/rs/zerolog/log"
)

// ProfileHandler serves the full user profile: core fields plus the
// household address and members that the session object omits.
type ProfileHandler struct {
	sessions    *Sessions
	codec       *session.TokenCodec
	adminRoleID int
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(sessions *Sessions, codec *session.TokenCodec, adminRoleID int) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, codec: codec, adminRoleID: adminRoleID}
}

type profileUser struct {
	ContactID   int    `json:"contactId"`
	UserID      int    `json:"userId"`
	UserGUID    string `json:"userGuid"`
	FirstName   string `json:"firstName"`
	Nickname    string `json:"nickname,omitempty"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	MobilePhone string `json:"mobilePhone,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	HouseholdID int    `json:"householdId,omitempty"`
}

type profileAddress struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

type profileMember struct {
	ContactID   int    `json:"contactId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Position    string `json:"position,omitempty"`
	Email       string `json:"email,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
	Age         int    `json:"age,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type profileResponse struct {
	User             *profileUser    `json:"user"`
	IsAdmin          bool            `json:"isAdmin"`
	Roles            []string        `json:"roles"`
	Address          *profileAddress `json:"address"`
	HouseholdMembers []profileMember `json:"householdMembers"`
}

// Get returns the full profile for the signed-in user
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := h.codec.ReadRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	client := h.sessions.Client(r)
	data, err := client.GetUserProfile(r.Context(), claims.Subject, h.adminRoleID)
	if err != nil {
		log.Error().Err(err).Str("sub", claims.Subject).Msg("Profile fetch failed")
		writeError(w, http.StatusBadGateway, "profile unavailable")
		return
	}
	if data.User == nil {
		writeError(w, http.StatusNotFound, "no profile for user")
		return
	}

	writeJSON(w, http.StatusOK, buildProfileResponse(client, data))
}

func buildProfileResponse(client *mp.Client, data *mp.UserAuthData) *profileResponse {
	resp := &profileResponse{
		User: &profileUser{
			ContactID:   data.User.ContactID,
			UserID:      data.User.UserID,
			UserGUID:    data.User.UserGUID,
			FirstName:   data.User.FirstName,
			Nickname:    data.User.Nickname,
			LastName:    data.User.LastName,
			Email:       data.User.Email,
			MobilePhone: data.User.MobilePhone,
			ImageURL:    client.ImageURL(data.User.ImageGUID, false),
			HouseholdID: data.User.HouseholdID,
		},
		IsAdmin: data.IsAdmin,
		Roles:   data.Roles,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}

	if data.Address != nil {
		resp.Address = &profileAddress{
			Line1: data.Address.Line1,
			Line2: data.Address.Line2,
			City:  data.Address.City,
			State: data.Address.State,
			Zip:   data.Address.Zip,
		}
	}

	resp.HouseholdMembers = make([]profileMember, 0, len(data.HouseholdMembers))
	for _, m := range data.HouseholdMembers {
		resp.HouseholdMembers = append(resp.HouseholdMembers, profileMember{
			ContactID:   m.ContactID,
			FirstName:   m.FirstName,
			LastName:    m.LastName,
			Position:    m.Position,
			Email:       m.Email,
			MobilePhone: m.MobilePhone,
			Age:         m.Age,
			ImageURL:    client.ImageURL(m.ImageGUID, false),
		})
	}

	return resp
}
