package mp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/churchhub/platform-gateway/internal/metrics"
)

// userProfileProc resolves profile, admin flag and role names for a
// user GUID in one round trip.
const userProfileProc = "api_TheHub_GetUserProfile_JSON"

// UserRecord is the core profile block of the user profile procedure
type UserRecord struct {
	ContactID   int    `json:"ContactID"`
	UserID      int    `json:"UserID"`
	UserGUID    string `json:"UserGUID"`
	FirstName   string `json:"FirstName"`
	Nickname    string `json:"Nickname"`
	LastName    string `json:"LastName"`
	Email       string `json:"Email"`
	MobilePhone string `json:"MobilePhone"`
	ImageGUID   string `json:"ImageGuid"`
	HouseholdID int    `json:"HouseholdID"`
}

// AddressRecord is the household address block
type AddressRecord struct {
	Line1 string `json:"Line1"`
	Line2 string `json:"Line2"`
	City  string `json:"City"`
	State string `json:"State"`
	Zip   string `json:"Zip"`
}

// HouseholdMember is one member of the user's household
type HouseholdMember struct {
	ContactID   int    `json:"ContactID"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	Position    string `json:"Position"`
	Email       string `json:"Email"`
	MobilePhone string `json:"MobilePhone"`
	Age         int    `json:"Age"`
	ImageGUID   string `json:"ImageGuid"`
}

// UserAuthData is the decoded payload of the user profile procedure
type UserAuthData struct {
	User             *UserRecord       `json:"User"`
	IsAdmin          bool              `json:"IsAdmin"`
	Roles            []string          `json:"Roles"`
	Address          *AddressRecord    `json:"Address"`
	HouseholdMembers []HouseholdMember `json:"HouseholdMembers"`
}

// GetUserProfile fetches profile, admin flag and roles for a user
// GUID. adminRoleID identifies the security role that marks a user as
// platform admin; zero disables the admin check.
func (c *Client) GetUserProfile(ctx context.Context, userGUID string, adminRoleID int) (*UserAuthData, error) {
	params := map[string]any{
		"@UserGUID": userGUID,
	}
	if adminRoleID != 0 {
		params["@AdminRoleID"] = adminRoleID
	} else {
		params["@AdminRoleID"] = nil
	}

	raw, err := c.executeProcedure(ctx, userProfileProc, params)
	if err != nil {
		metrics.ProfileFetches.WithLabelValues("failure").Inc()
		return nil, err
	}

	data, err := decodeProcedureJSON(raw)
	if err != nil {
		metrics.ProfileFetches.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.ProfileFetches.WithLabelValues("success").Inc()
	return data, nil
}

func (c *Client) executeProcedure(ctx context.Context, name string, params map[string]any) ([]byte, error) {
	token, err := c.serviceAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode procedure params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/ministryplatformapi/procs/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build procedure request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("procedure %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("procedure %s returned %d: %s", name, resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

// decodeProcedureJSON unwraps the stored procedure's result-set
// encoding: the payload is a JSON-encoded string inside the first
// column of the first row of the first result set, i.e.
// [[{"JsonResult": "{\"User\":...}"}]]. Nothing outside this package
// ever sees that wrapper.
func decodeProcedureJSON(raw []byte) (*UserAuthData, error) {
	var resultSets [][]map[string]string
	if err := json.Unmarshal(raw, &resultSets); err != nil {
		return nil, fmt.Errorf("unexpected procedure result shape: %w", err)
	}

	if len(resultSets) == 0 || len(resultSets[0]) == 0 {
		return nil, fmt.Errorf("procedure returned no rows")
	}

	var payload string
	for _, v := range resultSets[0][0] {
		payload = v
		break
	}
	if payload == "" {
		return nil, fmt.Errorf("procedure returned an empty payload")
	}

	var data UserAuthData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode procedure payload: %w", err)
	}
	return &data, nil
}

// dpUser is a row of the dp_Users table
type dpUser struct {
	UserGUID    string `json:"User_GUID"`
	DisplayName string `json:"Display_Name"`
}

// FindUserGUIDByContact resolves a contact's user GUID through the
// dp_Users table. Returns ("", nil) when the contact has no user
// record.
func (c *Client) FindUserGUIDByContact(ctx context.Context, contactID string) (string, error) {
	token, err := c.serviceAccessToken(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("$select", "User_GUID, Display_Name")
	q.Set("$filter", "Contact_ID="+contactID)
	q.Set("$top", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL()+"/ministryplatformapi/tables/dp_Users?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build table request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dp_Users lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dp_Users lookup returned %d", resp.StatusCode)
	}

	var users []dpUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", fmt.Errorf("failed to decode dp_Users response: %w", err)
	}

	if len(users) == 0 {
		return "", nil
	}
	return users[0].UserGUID, nil
}
