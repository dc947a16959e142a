package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vitalgen/internal/actor"
	"vitalgen/internal/core"
	"vitalgen/internal/gateway"
	"vitalgen/internal/metrics"
	"vitalgen/internal/schedule"
	"vitalgen/internal/workflow/mocks"
)

//go:generate mockgen -source=platform.go -destination=mocks/mocks.go -package=mocks

var now = time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)

type recordingReporter struct{ events []core.Event }

func (r *recordingReporter) Report(e core.Event) { r.events = append(r.events, e) }

func (r *recordingReporter) steps() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Step)
	}
	return out
}

type fixture struct {
	platform  *mocks.MockPlatform
	reporter  *recordingReporter
	metrics   *metrics.Metrics
	driver    *Driver
	dir       *gateway.Directory
	agent     *actor.Actor
	hospital  *actor.Actor
	registrar *actor.Actor
}

func newFixture(t *testing.T, facilities ...gateway.Facility) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		platform:  mocks.NewMockPlatform(ctrl),
		reporter:  &recordingReporter{},
		metrics:   metrics.New(prometheus.NewRegistry()),
		agent:     actor.New("fa1", "test", actor.RoleFieldAgent, "office-1", "t1", now.Add(time.Hour)),
		hospital:  actor.New("client-1", "secret", actor.RoleHospital, "office-1", "t2", now.Add(time.Hour)),
		registrar: actor.New("lr1", "test", actor.RoleRegistrar, "office-1", "t3", now.Add(time.Hour)),
	}
	if facilities == nil {
		facilities = []gateway.Facility{
			{ID: "office-1", Type: gateway.FacilityCRVSOffice, PartOf: "Location/district-1"},
			{ID: "hf-1", Type: gateway.FacilityHealthFacility, PartOf: "Location/district-1"},
		}
	}
	f.dir = gateway.NewDirectory([]gateway.Location{{ID: "district-1", Name: "Ibombo"}}, facilities)
	f.driver = NewDriver(f.platform, core.NewRand(1),
		WithClock(core.NewFakeClock(now)),
		WithReporter(f.reporter),
		WithMetrics(f.metrics),
	)
	return f
}

func (f *fixture) pool(declarers ...*actor.Actor) *actor.Pool {
	p := &actor.Pool{Registrars: []*actor.Actor{f.registrar}}
	for _, a := range declarers {
		switch a.Role() {
		case actor.RoleHospital:
			p.Hospitals = append(p.Hospitals, a)
		default:
			p.FieldAgents = append(p.FieldAgents, a)
		}
	}
	return p
}

func birth(submitted time.Time) schedule.WorkUnit {
	return schedule.WorkUnit{
		Kind:       schedule.KindBirth,
		Sex:        schedule.Female,
		LocationID: "district-1",
		Occurred:   submitted.AddDate(0, 0, -3),
		Submitted:  submitted,
	}
}

func TestDriver_PastBirthIsDeclaredRegisteredAndCertified(t *testing.T) {
	f := newFixture(t)
	unit := birth(now.AddDate(0, 0, -2))

	gomock.InOrder(
		f.platform.EXPECT().DeclareBirth(gomock.Any(), f.agent, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ gateway.Caller, b gateway.Birth) (string, error) {
				assert.Equal(t, "female", b.Sex)
				assert.Equal(t, unit.Occurred, b.BirthDate)
				assert.Equal(t, unit.Submitted, b.Submitted)
				assert.Equal(t, "Ibombo", b.Location.Name)
				return "comp-1", nil
			}),
		f.platform.EXPECT().RegisterBirth(gomock.Any(), f.registrar, "comp-1").Return("rec-1", nil),
		f.platform.EXPECT().CertifyBirth(gomock.Any(), f.registrar, "rec-1").Return("rec-1", nil),
	)

	require.NoError(t, f.driver.Run(context.Background(), unit, f.pool(f.agent), f.dir))
	assert.Equal(t, []string{StepDeclare, StepRegister, StepCertify}, f.reporter.steps())
	for _, e := range f.reporter.events {
		assert.True(t, e.Success)
		assert.Equal(t, "birth", e.Kind)
	}
	assert.Equal(t, "fa1", f.reporter.events[0].Actor)
	assert.Equal(t, "lr1", f.reporter.events[2].Actor)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UnitsTotal.WithLabelValues("birth", OutcomeSuccess)))
}

func TestDriver_BirthDeclaredTodayIsNotRegistered(t *testing.T) {
	f := newFixture(t)
	unit := birth(time.Date(2022, 5, 10, 0, 30, 0, 0, time.UTC))

	f.platform.EXPECT().DeclareBirth(gomock.Any(), f.agent, gomock.Any()).Return("comp-1", nil)

	require.NoError(t, f.driver.Run(context.Background(), unit, f.pool(f.agent), f.dir))
	assert.Equal(t, []string{StepDeclare}, f.reporter.steps())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UnitsTotal.WithLabelValues("birth", OutcomeSkipped)))
}

func TestDriver_BirthYesterdayLateEveningIsRegistered(t *testing.T) {
	f := newFixture(t)
	unit := birth(time.Date(2022, 5, 9, 23, 59, 0, 0, time.UTC))

	gomock.InOrder(
		f.platform.EXPECT().DeclareBirth(gomock.Any(), f.agent, gomock.Any()).Return("comp-1", nil),
		f.platform.EXPECT().RegisterBirth(gomock.Any(), f.registrar, "comp-1").Return("rec-1", nil),
		f.platform.EXPECT().CertifyBirth(gomock.Any(), f.registrar, "rec-1").Return("rec-1", nil),
	)
	require.NoError(t, f.driver.Run(context.Background(), unit, f.pool(f.agent), f.dir))
}

func TestDriver_HospitalSendsNotification(t *testing.T) {
	f := newFixture(t)
	unit := birth(now.AddDate(0, 0, -10))

	gomock.InOrder(
		f.platform.EXPECT().NotifyBirth(gomock.Any(), f.hospital, "female", unit.Occurred, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ gateway.Caller, _ string, _ time.Time, fac gateway.Facility) (string, error) {
				assert.Equal(t, "hf-1", fac.ID)
				return "comp-9", nil
			}),
		f.platform.EXPECT().RegisterBirth(gomock.Any(), f.registrar, "comp-9").Return("rec-9", nil),
		f.platform.EXPECT().CertifyBirth(gomock.Any(), f.registrar, "rec-9").Return("rec-9", nil),
	)

	require.NoError(t, f.driver.Run(context.Background(), unit, f.pool(f.hospital), f.dir))
	assert.Equal(t, []string{StepNotify, StepRegister, StepCertify}, f.reporter.steps())
}

func TestDriver_HospitalWithoutHealthFacility(t *testing.T) {
	f := newFixture(t, gateway.Facility{ID: "office-1", Type: gateway.FacilityCRVSOffice, PartOf: "Location/district-1"})

	err := f.driver.Run(context.Background(), birth(now.AddDate(0, 0, -1)), f.pool(f.hospital), f.dir)
	assert.ErrorIs(t, err, ErrNoHealthFacility)
	assert.Empty(t, f.reporter.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UnitsTotal.WithLabelValues("birth", OutcomeFailure)))
}

func TestDriver_DeclarerOfficeMustExist(t *testing.T) {
	f := newFixture(t)
	stray := actor.New("fa9", "test", actor.RoleFieldAgent, "office-404", "t", now.Add(time.Hour))

	err := f.driver.Run(context.Background(), birth(now.AddDate(0, 0, -1)), f.pool(stray), f.dir)
	assert.ErrorIs(t, err, ErrUnknownOffice)
}

func TestDriver_NoRegistrar(t *testing.T) {
	f := newFixture(t)
	pool := &actor.Pool{FieldAgents: []*actor.Actor{f.agent}}

	err := f.driver.Run(context.Background(), birth(now.AddDate(0, 0, -1)), pool, f.dir)
	assert.ErrorIs(t, err, ErrNoRegistrar)
}

func TestDriver_RegisterFailureAbortsUnit(t *testing.T) {
	f := newFixture(t)
	remote := &gateway.RemoteError{Operation: "markBirthAsRegistered", Status: 200}

	gomock.InOrder(
		f.platform.EXPECT().DeclareBirth(gomock.Any(), f.agent, gomock.Any()).Return("comp-1", nil),
		f.platform.EXPECT().RegisterBirth(gomock.Any(), f.registrar, "comp-1").Return("", remote),
	)

	err := f.driver.Run(context.Background(), birth(now.AddDate(0, 0, -5)), f.pool(f.agent), f.dir)
	assert.ErrorIs(t, err, gateway.ErrRemoteMutationFailed)
	require.Len(t, f.reporter.events, 2)
	assert.False(t, f.reporter.events[1].Success)
	assert.NotEmpty(t, f.reporter.events[1].Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UnitsTotal.WithLabelValues("birth", OutcomeFailure)))
}

func TestDriver_Death(t *testing.T) {
	f := newFixture(t)
	unit := schedule.WorkUnit{
		Kind:       schedule.KindDeath,
		Sex:        schedule.Male,
		LocationID: "district-1",
		BornAt:     now.AddDate(-40, 0, 0),
		Occurred:   now.AddDate(0, 0, -4),
		Submitted:  now.Add(-time.Hour),
	}

	// Hospitals never declare deaths, so the field agent is the only choice.
	gomock.InOrder(
		f.platform.EXPECT().DeclareDeath(gomock.Any(), f.agent, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ gateway.Caller, d gateway.Death) (string, error) {
				assert.Equal(t, "male", d.Sex)
				assert.Equal(t, unit.BornAt, d.BornAt)
				assert.Equal(t, unit.Occurred, d.DiedAt)
				return "comp-d", nil
			}),
		f.platform.EXPECT().RegisterDeath(gomock.Any(), f.registrar, "comp-d").Return("rec-d", nil),
		f.platform.EXPECT().CertifyDeath(gomock.Any(), f.registrar, "rec-d").Return("rec-d", nil),
	)

	require.NoError(t, f.driver.Run(context.Background(), unit, f.pool(f.agent, f.hospital), f.dir))
	assert.Equal(t, []string{StepDeclare, StepRegister, StepCertify}, f.reporter.steps())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UnitsTotal.WithLabelValues("death", OutcomeSuccess)))
}

func TestDriver_DeathWithoutDeclarer(t *testing.T) {
	f := newFixture(t)
	unit := schedule.WorkUnit{Kind: schedule.KindDeath, LocationID: "district-1", Submitted: now.AddDate(0, 0, -1)}

	err := f.driver.Run(context.Background(), unit, f.pool(f.hospital), f.dir)
	assert.ErrorIs(t, err, ErrNoDeclarer)
}

func TestSameDay(t *testing.T) {
	assert.True(t, sameDay(time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, sameDay(time.Date(2022, 5, 9, 23, 59, 59, 0, time.UTC), now))
	assert.False(t, sameDay(time.Date(2021, 5, 10, 12, 0, 0, 0, time.UTC), now))
}

func TestDriver_OnDoneReceivesOutcome(t *testing.T) {
	f := newFixture(t)
	var got []string
	f.driver = NewDriver(f.platform, core.NewRand(1),
		WithClock(core.NewFakeClock(now)),
		WithOnDone(func(kind schedule.Kind, outcome string) { got = append(got, string(kind)+":"+outcome) }),
	)
	f.platform.EXPECT().DeclareBirth(gomock.Any(), f.agent, gomock.Any()).Return("comp-1", nil)

	require.NoError(t, f.driver.Run(context.Background(), birth(now), f.pool(f.agent), f.dir))
	assert.Equal(t, []string{"birth:skipped"}, got)
}
