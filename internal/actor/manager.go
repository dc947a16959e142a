package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vitalgen/internal/auth"
	"vitalgen/internal/gateway"
	"vitalgen/internal/metrics"
)

// ErrNoEligibleOffice is returned when a location has no CRVS office to
// attach actors to.
var ErrNoEligibleOffice = errors.New("no eligible CRVS office")

// Counts is how many actors of each role a pool gets.
type Counts struct {
	FieldAgents        int
	Hospitals          int
	RegistrationAgents int
	Registrars         int
}

// Source picks random indices. *core.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Manager creates actor pools.
type Manager struct {
	platform Provisioner
	auth     Authenticator
	counts   Counts
	password string
	rnd      Source
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager returns a Manager. password is the one every created user
// signs in with.
func NewManager(platform Provisioner, authn Authenticator, counts Counts, password string, rnd Source, opts ...Option) *Manager {
	m := &Manager{
		platform: platform,
		auth:     authn,
		counts:   counts,
		password: password,
		rnd:      rnd,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreatePool creates the actors for location, all attached to one randomly
// chosen CRVS office of it. Actors are created one after the other, field
// agents first, then hospitals, registration agents and registrars.
func (m *Manager) CreatePool(ctx context.Context, admin gateway.Caller, location gateway.Location, dir *gateway.Directory) (*Pool, error) {
	offices := dir.FacilitiesIn(location.ID, gateway.FacilityCRVSOffice)
	if len(offices) == 0 {
		return nil, fmt.Errorf("%w for location %s (%s)", ErrNoEligibleOffice, location.Name, location.ID)
	}
	office := offices[m.rnd.IntN(len(offices))]

	pool := &Pool{}
	steps := []struct {
		role  Role
		count int
		into  *[]*Actor
	}{
		{RoleFieldAgent, m.counts.FieldAgents, &pool.FieldAgents},
		{RoleHospital, m.counts.Hospitals, &pool.Hospitals},
		{RoleRegistrationAgent, m.counts.RegistrationAgents, &pool.RegistrationAgents},
		{RoleRegistrar, m.counts.Registrars, &pool.Registrars},
	}
	for _, step := range steps {
		m.logger.Info("creating actors", "role", step.role, "count", step.count, "location", location.Name)
		for i := 0; i < step.count; i++ {
			var (
				a   *Actor
				err error
			)
			if step.role == RoleHospital {
				a, err = m.createSystemClient(ctx, admin, office.ID)
			} else {
				a, err = m.createUser(ctx, admin, office.ID, step.role)
			}
			if err != nil {
				pool.Release()
				return nil, fmt.Errorf("creating %s for location %s: %w", step.role, location.ID, err)
			}
			m.metrics.ActorCreated(string(step.role))
			*step.into = append(*step.into, a)
		}
	}
	return pool, nil
}

// createUser creates, signs in and activates a user.
func (m *Manager) createUser(ctx context.Context, admin gateway.Caller, officeID string, role Role) (*Actor, error) {
	u, err := m.platform.CreateUser(ctx, admin, officeID, string(role))
	if err != nil {
		return nil, err
	}
	token, err := m.auth.Token(ctx, u.Username, m.password)
	if err != nil {
		return nil, err
	}
	exp, err := auth.ExpiresAt(token)
	if err != nil {
		return nil, err
	}
	a := New(u.Username, m.password, role, officeID, token, exp)
	if err := m.platform.ActivateUser(ctx, a, u.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// createSystemClient creates a local system admin, registers a HEALTH system
// client with it and signs the client in.
func (m *Manager) createSystemClient(ctx context.Context, admin gateway.Caller, officeID string) (*Actor, error) {
	sysAdmin, err := m.createUser(ctx, admin, officeID, gateway.RoleLocalSystemAdmin)
	if err != nil {
		return nil, err
	}
	sysAdmin.Release()

	creds, err := m.platform.RegisterSystemClient(ctx, sysAdmin, gateway.ScopeHealth)
	if err != nil {
		return nil, err
	}
	token, err := m.auth.SystemToken(ctx, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, err
	}
	exp, err := auth.ExpiresAt(token)
	if err != nil {
		return nil, err
	}
	return New(creds.ClientID, creds.ClientSecret, RoleHospital, officeID, token, exp), nil
}
