package models

// Session is the application-level session returned to page code and
// the /api/session endpoint. Profile and authorization fields are
// re-resolved from MinistryPlatform on every read; FirstName,
// LastName and Email are always present (empty string, never null),
// IsAdmin is always set and Roles is always a non-nil slice.
type Session struct {
	Sub         string      `json:"sub"`
	UserID      string      `json:"userId,omitempty"`
	ContactID   string      `json:"contactId,omitempty"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Nickname    string      `json:"nickname,omitempty"`
	Email       string      `json:"email"`
	MobilePhone string      `json:"mobilePhone,omitempty"`
	ImageURL    string      `json:"image,omitempty"`
	HouseholdID string      `json:"householdId,omitempty"`
	IsAdmin     bool        `json:"isAdmin"`
	Roles       []string    `json:"roles"`
	Simulation  *Simulation `json:"simulation,omitempty"`
}

// Simulation types
const (
	SimulationImpersonate = "impersonate"
	SimulationRoles       = "roles"
)

// Simulation records an active admin simulation overlay. The
// Original* fields always hold the pre-simulation identity so it can
// be restored and audited, regardless of what the overlay resolves to.
type Simulation struct {
	Type            string   `json:"type"`
	ContactID       string   `json:"contactId,omitempty"`
	OriginalUserID  string   `json:"originalUserId"`
	OriginalRoles   []string `json:"originalRoles"`
	OriginalIsAdmin bool     `json:"originalIsAdmin"`
}
