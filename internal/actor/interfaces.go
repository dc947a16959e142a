package actor

import (
	"context"

	"vitalgen/internal/gateway"
)

// Authenticator obtains tokens. *auth.Client satisfies it.
type Authenticator interface {
	Token(ctx context.Context, username, password string) (string, error)
	SystemToken(ctx context.Context, clientID, secret string) (string, error)
}

// Provisioner creates accounts on the platform. *gateway.Client satisfies it.
type Provisioner interface {
	CreateUser(ctx context.Context, as gateway.Caller, officeID, role string) (gateway.User, error)
	ActivateUser(ctx context.Context, as gateway.Caller, userID string) error
	RegisterSystemClient(ctx context.Context, as gateway.Caller, scope string) (gateway.ClientCredentials, error)
}
