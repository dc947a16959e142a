// Package actor manages the synthetic users that submit and process records:
// creating them for a location, keeping their tokens valid while they are in
// use, and releasing them when the location is done.
package actor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Role is the function an actor has in the workflow.
type Role string

const (
	RoleFieldAgent        Role = "FIELD_AGENT"
	RoleHospital          Role = "HOSPITAL" // a HEALTH system client
	RoleRegistrationAgent Role = "REGISTRATION_AGENT"
	RoleRegistrar         Role = "LOCAL_REGISTRAR"

	// RoleNationalSystemAdmin is the pre-existing administrator that creates
	// every other actor.
	RoleNationalSystemAdmin Role = "NATIONAL_SYSTEM_ADMIN"
)

// Actor is one identity on the platform. Its token is replaced by the
// refresher while other goroutines read it, so access goes through methods.
type Actor struct {
	username string
	password string // client secret for system clients
	role     Role
	officeID string
	system   bool

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	inUse atomic.Bool
}

// New returns an actor that is in use and holds token.
func New(username, password string, role Role, officeID string, token string, expiresAt time.Time) *Actor {
	a := &Actor{
		username:  username,
		password:  password,
		role:      role,
		officeID:  officeID,
		system:    role == RoleHospital,
		token:     token,
		expiresAt: expiresAt,
	}
	a.inUse.Store(true)
	return a
}

// Name returns the username, or the client id of a system client.
func (a *Actor) Name() string     { return a.username }
func (a *Actor) Role() Role       { return a.role }
func (a *Actor) OfficeID() string { return a.officeID }
func (a *Actor) IsSystem() bool   { return a.system }

func (a *Actor) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *Actor) ExpiresAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiresAt
}

// SetToken replaces the token and its expiry.
func (a *Actor) SetToken(token string, expiresAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.expiresAt = expiresAt
}

// InUse reports whether the actor still belongs to an active pool.
func (a *Actor) InUse() bool { return a.inUse.Load() }

// Release marks the actor as no longer needed. Its next scheduled refresh
// becomes a no-op.
func (a *Actor) Release() { a.inUse.Store(false) }

// Pool is the set of actors created for one location.
type Pool struct {
	FieldAgents        []*Actor
	Hospitals          []*Actor
	RegistrationAgents []*Actor
	Registrars         []*Actor
}

// All returns every actor of the pool.
func (p *Pool) All() []*Actor {
	all := make([]*Actor, 0, len(p.FieldAgents)+len(p.Hospitals)+len(p.RegistrationAgents)+len(p.Registrars))
	all = append(all, p.FieldAgents...)
	all = append(all, p.Hospitals...)
	all = append(all, p.RegistrationAgents...)
	return append(all, p.Registrars...)
}

// BirthDeclarers returns the actors that may declare births.
func (p *Pool) BirthDeclarers() []*Actor {
	out := make([]*Actor, 0, len(p.FieldAgents)+len(p.Hospitals)+len(p.RegistrationAgents))
	out = append(out, p.FieldAgents...)
	out = append(out, p.Hospitals...)
	return append(out, p.RegistrationAgents...)
}

// DeathDeclarers returns the actors that may declare deaths. Hospitals only
// send birth notifications.
func (p *Pool) DeathDeclarers() []*Actor {
	out := make([]*Actor, 0, len(p.FieldAgents)+len(p.RegistrationAgents))
	out = append(out, p.FieldAgents...)
	return append(out, p.RegistrationAgents...)
}

// Release marks every actor of the pool as no longer in use.
func (p *Pool) Release() {
	for _, a := range p.All() {
		a.Release()
	}
}
