package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Roles assigned to created users.
const (
	RoleFieldAgent        = "FIELD_AGENT"
	RoleRegistrationAgent = "REGISTRATION_AGENT"
	RoleLocalRegistrar    = "LOCAL_REGISTRAR"
	RoleLocalSystemAdmin  = "LOCAL_SYSTEM_ADMIN"
)

// ScopeHealth is the system client scope of hospital integrations.
const ScopeHealth = "HEALTH"

// User is an account created through createOrUpdateUser.
type User struct {
	ID       string
	Username string
}

// ClientCredentials identify a registered system client.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	SHASecret    string
}

const createUserMutation = `
mutation createOrUpdateUser($user: UserInput!) {
  createOrUpdateUser(user: $user) {
    username
    id
  }
}`

const activateUserMutation = `
mutation activateUser($userId: String!, $password: String!, $securityQNAs: [SecurityQuestionAnswer]!) {
  activateUser(userId: $userId, password: $password, securityQNAs: $securityQNAs)
}`

// CreateUser creates a user with role, attached to the CRVS office officeID.
// The account must be activated before it can do anything else.
func (c *Client) CreateUser(ctx context.Context, as Caller, officeID, role string) (User, error) {
	p := c.fake.Person()
	user := map[string]any{
		"name": []any{map[string]any{
			"use":        "en",
			"firstNames": p.FirstNames,
			"familyName": p.FamilyName,
		}},
		"identifier": []any{map[string]any{
			"system": "NATIONAL_ID",
			"value":  c.fake.NationalID(),
		}},
		"username":      strings.ToLower(p.FirstNames) + "." + strings.ToLower(p.FamilyName),
		"mobile":        c.fake.PhoneNumber(),
		"email":         c.fake.Email(),
		"primaryOffice": officeID,
		"role":          role,
	}
	res, err := c.graphql(ctx, as, "createOrUpdateUser",
		"createuser-"+p.FirstNames+"-"+p.FamilyName,
		createUserMutation, map[string]any{"user": user}, "createOrUpdateUser")
	if err != nil {
		return User{}, err
	}
	created := User{ID: res.Get("id").String(), Username: res.Get("username").String()}
	if created.ID == "" || created.Username == "" {
		return User{}, &RemoteError{Operation: "createOrUpdateUser", Body: []byte(res.Raw)}
	}
	return created, nil
}

// ActivateUser sets the configured password on a freshly created user. as
// must be the user itself.
func (c *Client) ActivateUser(ctx context.Context, as Caller, userID string) error {
	_, err := c.graphql(ctx, as, "activateUser", correlationID("activateuser"),
		activateUserMutation, map[string]any{
			"userId":       userID,
			"password":     c.cfg.Password,
			"securityQNAs": []any{},
		}, "")
	return err
}

// RegisterSystemClient registers a system client with scope. as must be a
// local system admin.
func (c *Client) RegisterSystemClient(ctx context.Context, as Caller, scope string) (ClientCredentials, error) {
	body, err := c.rest(ctx, as, "registerSystemClient", c.cfg.UserMgntURL+"/registerSystemClient",
		"create-system-scope", map[string]string{"scope": scope})
	if err != nil {
		return ClientCredentials{}, err
	}
	creds := ClientCredentials{
		ClientID:     gjson.GetBytes(body, "client_id").String(),
		ClientSecret: gjson.GetBytes(body, "client_secret").String(),
		SHASecret:    gjson.GetBytes(body, "sha_secret").String(),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return ClientCredentials{}, fmt.Errorf("registerSystemClient: %w: no credentials in reply", ErrRemoteMutationFailed)
	}
	return creds, nil
}
