package workflow

import (
	"context"
	"time"

	"vitalgen/internal/gateway"
)

// Platform is the part of the registration platform a work unit talks to.
// *gateway.Client satisfies it.
type Platform interface {
	DeclareBirth(ctx context.Context, as gateway.Caller, b gateway.Birth) (string, error)
	NotifyBirth(ctx context.Context, as gateway.Caller, sex string, birthDate time.Time, facility gateway.Facility) (string, error)
	DeclareDeath(ctx context.Context, as gateway.Caller, d gateway.Death) (string, error)
	RegisterBirth(ctx context.Context, as gateway.Caller, id string) (string, error)
	CertifyBirth(ctx context.Context, as gateway.Caller, id string) (string, error)
	RegisterDeath(ctx context.Context, as gateway.Caller, id string) (string, error)
	CertifyDeath(ctx context.Context, as gateway.Caller, id string) (string, error)
}
