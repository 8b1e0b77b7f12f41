package session

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/churchhub/platform-gateway/internal/models"
)

// Directive is the validated admin-simulation cookie payload: exactly
// one of two variants, rejected at the deserialization boundary when
// malformed.
type Directive struct {
	Kind string
	// ContactID is set for impersonate directives
	ContactID string
	// Roles and IsAdmin are set for role-override directives
	Roles   []string
	IsAdmin bool
}

// rawDirective tolerates the loosely-typed cookie shape: contactId
// may arrive as a string or a number.
type rawDirective struct {
	Type      string   `json:"type"`
	ContactID any      `json:"contactId,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	IsAdmin   *bool    `json:"isAdmin,omitempty"`
}

func contactIDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// ParseDirective validates a simulation cookie value. It returns an
// error for anything other than a well-formed impersonate or
// role-override descriptor.
func ParseDirective(value string) (*Directive, error) {
	var raw rawDirective
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("malformed simulation cookie: %w", err)
	}

	switch raw.Type {
	case models.SimulationImpersonate:
		id := contactIDString(raw.ContactID)
		if id == "" {
			return nil, fmt.Errorf("impersonate directive missing contactId")
		}
		if _, err := strconv.Atoi(id); err != nil {
			return nil, fmt.Errorf("impersonate directive has non-numeric contactId %q", id)
		}
		return &Directive{Kind: models.SimulationImpersonate, ContactID: id}, nil

	case models.SimulationRoles:
		if raw.Roles == nil {
			return nil, fmt.Errorf("roles directive missing roles list")
		}
		isAdmin := false
		if raw.IsAdmin != nil {
			isAdmin = *raw.IsAdmin
		}
		return &Directive{Kind: models.SimulationRoles, Roles: raw.Roles, IsAdmin: isAdmin}, nil

	default:
		return nil, fmt.Errorf("unknown simulation type %q", raw.Type)
	}
}
