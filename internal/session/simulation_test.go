package session

import (
	"testing"

	"github.com/churchhub/platform-gateway/internal/models"
)

func TestParseDirectiveImpersonate(t *testing.T) {
	// contactId arrives as a number or a string depending on the caller
	for _, raw := range []string{
		`{"type":"impersonate","contactId":12345}`,
		`{"type":"impersonate","contactId":"12345"}`,
	} {
		d, err := ParseDirective(raw)
		if err != nil {
			t.Fatalf("ParseDirective(%s) failed: %v", raw, err)
		}
		if d.Kind != models.SimulationImpersonate || d.ContactID != "12345" {
			t.Errorf("ParseDirective(%s) = %+v", raw, d)
		}
	}
}

func TestParseDirectiveRoles(t *testing.T) {
	d, err := ParseDirective(`{"type":"roles","roles":["Greeter","Usher"],"isAdmin":true}`)
	if err != nil {
		t.Fatalf("ParseDirective failed: %v", err)
	}
	if d.Kind != models.SimulationRoles || len(d.Roles) != 2 || !d.IsAdmin {
		t.Errorf("unexpected directive: %+v", d)
	}

	// isAdmin defaults to false when omitted
	d, err = ParseDirective(`{"type":"roles","roles":[]}`)
	if err != nil {
		t.Fatalf("ParseDirective failed: %v", err)
	}
	if d.IsAdmin {
		t.Error("isAdmin must default to false")
	}
	if d.Roles == nil {
		t.Error("empty roles list must parse as non-nil")
	}
}

func TestParseDirectiveRejectsMalformed(t *testing.T) {
	bad := []string{
		``,
		`not json`,
		`{}`,
		`{"type":"impersonate"}`,
		`{"type":"impersonate","contactId":"abc"}`,
		`{"type":"roles"}`,
		`{"type":"other","roles":["X"]}`,
	}
	for _, raw := range bad {
		if _, err := ParseDirective(raw); err == nil {
			t.Errorf("ParseDirective(%q) accepted a malformed payload", raw)
		}
	}
}
