// Package workflow drives one work unit through the registration platform:
// declare (or notify), register, certify.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vitalgen/internal/actor"
	"vitalgen/internal/core"
	"vitalgen/internal/gateway"
	"vitalgen/internal/metrics"
	"vitalgen/internal/schedule"
)

// Steps of a work unit, as reported in events and metrics.
const (
	StepDeclare  = "declare"
	StepNotify   = "notify"
	StepRegister = "register"
	StepCertify  = "certify"
)

// Outcomes of a work unit.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped" // declared today, left unregistered
)

var (
	ErrNoDeclarer       = errors.New("no eligible declarer")
	ErrNoRegistrar      = errors.New("no registrar")
	ErrUnknownOffice    = errors.New("declarer office not found")
	ErrUnknownLocation  = errors.New("location not found")
	ErrNoHealthFacility = errors.New("no health facility in location")
)

// Source picks random indices. *core.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type Driver struct {
	platform Platform
	rnd      Source
	clock    core.Clock
	reporter core.Reporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onDone   func(kind schedule.Kind, outcome string)
}

type Option func(*Driver)

func WithClock(c core.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

func WithReporter(r core.Reporter) Option {
	return func(d *Driver) { d.reporter = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithOnDone registers a callback run after every unit with its outcome.
func WithOnDone(fn func(kind schedule.Kind, outcome string)) Option {
	return func(d *Driver) { d.onDone = fn }
}

func NewDriver(platform Platform, rnd Source, opts ...Option) *Driver {
	d := &Driver{
		platform: platform,
		rnd:      rnd,
		clock:    core.RealClock{},
		reporter: core.NullReporter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes one work unit with actors drawn from pool. An error aborts
// this unit only.
func (d *Driver) Run(ctx context.Context, unit schedule.WorkUnit, pool *actor.Pool, dir *gateway.Directory) error {
	var (
		outcome string
		err     error
	)
	switch unit.Kind {
	case schedule.KindBirth:
		outcome, err = d.birth(ctx, unit, pool, dir)
	case schedule.KindDeath:
		outcome, err = d.death(ctx, unit, pool, dir)
	default:
		err = fmt.Errorf("unknown work unit kind %q", unit.Kind)
	}
	if err != nil {
		outcome = OutcomeFailure
	}
	d.metrics.UnitDone(string(unit.Kind), outcome)
	if d.onDone != nil {
		d.onDone(unit.Kind, outcome)
	}
	return err
}

func (d *Driver) birth(ctx context.Context, unit schedule.WorkUnit, pool *actor.Pool, dir *gateway.Directory) (string, error) {
	declarer, err := d.pick(pool.BirthDeclarers(), ErrNoDeclarer)
	if err != nil {
		return "", err
	}
	registrar, err := d.pick(pool.Registrars, ErrNoRegistrar)
	if err != nil {
		return "", err
	}
	if _, ok := dir.Facility(declarer.OfficeID()); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOffice, declarer.OfficeID())
	}

	var id string
	if declarer.IsSystem() {
		facilities := dir.FacilitiesIn(unit.LocationID, gateway.FacilityHealthFacility)
		if len(facilities) == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoHealthFacility, unit.LocationID)
		}
		facility := facilities[d.rnd.IntN(len(facilities))]
		id, err = d.step(unit, StepNotify, declarer, func() (string, error) {
			return d.platform.NotifyBirth(ctx, declarer, string(unit.Sex), unit.Occurred, facility)
		})
	} else {
		location, ok := dir.Location(unit.LocationID)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownLocation, unit.LocationID)
		}
		id, err = d.step(unit, StepDeclare, declarer, func() (string, error) {
			return d.platform.DeclareBirth(ctx, declarer, gateway.Birth{
				Sex:       string(unit.Sex),
				BirthDate: unit.Occurred,
				Submitted: unit.Submitted,
				Location:  location,
			})
		})
	}
	if err != nil {
		return "", err
	}

	if sameDay(unit.Submitted, d.clock.Now()) {
		d.logger.Info("declared today, not registering", "id", id, "submitted", unit.Submitted)
		return OutcomeSkipped, nil
	}
	return d.registerAndCertify(ctx, unit, registrar, id, d.platform.RegisterBirth, d.platform.CertifyBirth)
}

func (d *Driver) death(ctx context.Context, unit schedule.WorkUnit, pool *actor.Pool, dir *gateway.Directory) (string, error) {
	declarer, err := d.pick(pool.DeathDeclarers(), ErrNoDeclarer)
	if err != nil {
		return "", err
	}
	registrar, err := d.pick(pool.Registrars, ErrNoRegistrar)
	if err != nil {
		return "", err
	}
	location, ok := dir.Location(unit.LocationID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLocation, unit.LocationID)
	}

	id, err := d.step(unit, StepDeclare, declarer, func() (string, error) {
		return d.platform.DeclareDeath(ctx, declarer, gateway.Death{
			Sex:       string(unit.Sex),
			BornAt:    unit.BornAt,
			DiedAt:    unit.Occurred,
			Submitted: unit.Submitted,
			Location:  location,
		})
	})
	if err != nil {
		return "", err
	}
	return d.registerAndCertify(ctx, unit, registrar, id, d.platform.RegisterDeath, d.platform.CertifyDeath)
}

type transition func(ctx context.Context, as gateway.Caller, id string) (string, error)

func (d *Driver) registerAndCertify(ctx context.Context, unit schedule.WorkUnit, registrar *actor.Actor, id string, register, certify transition) (string, error) {
	registered, err := d.step(unit, StepRegister, registrar, func() (string, error) {
		return register(ctx, registrar, id)
	})
	if err != nil {
		return "", err
	}
	if _, err := d.step(unit, StepCertify, registrar, func() (string, error) {
		return certify(ctx, registrar, registered)
	}); err != nil {
		return "", err
	}
	return OutcomeSuccess, nil
}

// step times one remote call and reports it.
func (d *Driver) step(unit schedule.WorkUnit, step string, as *actor.Actor, call func() (string, error)) (string, error) {
	start := d.clock.Now()
	id, err := call()
	took := d.clock.Since(start)

	ev := core.Event{
		Actor:     as.Name(),
		Timestamp: start,
		Kind:      string(unit.Kind),
		Step:      step,
		Duration:  took,
		Success:   err == nil,
		RecordID:  id,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	d.reporter.Report(ev)
	d.metrics.ObserveStep(step, err == nil, took)

	if err != nil {
		return "", fmt.Errorf("%s %s: %w", step, unit.Kind, err)
	}
	d.logger.Info(step+" "+string(unit.Kind), "actor", as.Name(), "id", id, "took", took)
	return id, nil
}

func (d *Driver) pick(actors []*actor.Actor, none error) (*actor.Actor, error) {
	if len(actors) == 0 {
		return nil, none
	}
	return actors[d.rnd.IntN(len(actors))], nil
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
