// Package generator runs a whole generation: it loads the directory and
// statistics, creates an actor pool per district and pushes every scheduled
// work unit through the executor.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vitalgen/internal/actor"
	"vitalgen/internal/auth"
	"vitalgen/internal/collector"
	"vitalgen/internal/config"
	"vitalgen/internal/core"
	"vitalgen/internal/executor"
	"vitalgen/internal/gateway"
	"vitalgen/internal/metrics"
	"vitalgen/internal/progress"
	"vitalgen/internal/ratelimit"
	"vitalgen/internal/schedule"
	"vitalgen/internal/stats"
	"vitalgen/internal/workflow"
)

// ErrNoLocations is returned when the location filter leaves nothing to do.
var ErrNoLocations = errors.New("no locations selected")

// Platform is everything the generator needs from the registration
// platform. *gateway.Client satisfies it.
type Platform interface {
	Locations(ctx context.Context, as gateway.Caller) ([]gateway.Location, error)
	Facilities(ctx context.Context, as gateway.Caller) ([]gateway.Facility, error)
	CrudeDeathRate(ctx context.Context, as gateway.Caller) (float64, error)
	Statistics(ctx context.Context, as gateway.Caller) ([]byte, error)
	workflow.Platform
	actor.Provisioner
}

// Summary describes a finished run.
type Summary struct {
	Units            *collector.Units
	Locations        []string // processed, by name
	SkippedLocations []string // no CRVS office
	PeakInFlight     int
	FailedUnits      int
	Seed             uint64
}

type Generator struct {
	cfg      *config.Config
	platform Platform
	auth     actor.Authenticator
	clock    core.Clock
	rnd      *core.Rand
	logger   *slog.Logger
	metrics  *metrics.Metrics
	reporter core.Reporter
	units    *collector.Collector
	progress *progress.Progress
}

type Option func(*Generator)

func WithClock(c core.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithCollector sends call events and unit outcomes to c. The summary then
// shares c's unit counts.
func WithCollector(c *collector.Collector) Option {
	return func(g *Generator) {
		g.reporter = c
		g.units = c
	}
}

func WithProgress(p *progress.Progress) Option {
	return func(g *Generator) { g.progress = p }
}

// WithRand replaces the random source seeded from the run configuration.
func WithRand(r *core.Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

func New(cfg *config.Config, platform Platform, authn actor.Authenticator, opts ...Option) *Generator {
	g := &Generator{
		cfg:      cfg,
		platform: platform,
		auth:     authn,
		clock:    core.RealClock{},
		logger:   slog.Default(),
		reporter: core.NullReporter,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rnd == nil {
		g.rnd = core.NewRand(cfg.Run.Seed)
	}
	return g
}

// Run generates every configured year for every selected district. The
// returned error is fatal for the run; per-unit failures are only counted.
// The summary is returned even when the run ends early.
func (g *Generator) Run(parent context.Context) (*Summary, error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	units := collector.NewUnits()
	record := units.Add
	if g.units != nil {
		units, record = g.units.Units(), g.units.UnitDone
	}
	summary := &Summary{Units: units, Seed: g.rnd.Seed()}
	g.logger.Info("starting generation",
		"years", fmt.Sprintf("%d-%d", g.cfg.Run.StartYear, g.cfg.Run.EndYear),
		"concurrency", g.cfg.Run.Concurrency, "seed", summary.Seed)

	admin, err := g.signInAdmin(ctx)
	if err != nil {
		return summary, err
	}
	defer admin.Release()

	refresher := actor.NewRefresher(g.auth, g.clock, g.cfg.Run.RefreshLead,
		actor.WithRefreshLogger(g.logger),
		actor.WithRefreshMetrics(g.metrics),
		actor.OnFatal(func(_ *actor.Actor, err error) { cancel(err) }),
	)
	defer refresher.Stop()
	refresher.Start(ctx, admin)

	in, err := g.load(ctx, admin)
	if err != nil {
		return summary, err
	}
	locations, err := g.selectLocations(in.dir.Locations)
	if err != nil {
		return summary, err
	}
	brackets := toBrackets(g.cfg.CompletionBrackets)
	if err := brackets.Validate(); err != nil {
		return summary, err
	}

	execOpts := []executor.Option{
		executor.WithLogger(g.logger),
		executor.WithMetrics(g.metrics),
		executor.WithReporter(g.reporter),
	}
	if g.cfg.Run.RPS > 0 {
		execOpts = append(execOpts, executor.WithRateLimiter(ratelimit.New(float64(g.cfg.Run.RPS))))
	}
	exec := executor.New(g.cfg.Run.Concurrency, execOpts...)

	driver := workflow.NewDriver(g.platform, g.rnd,
		workflow.WithClock(g.clock),
		workflow.WithReporter(g.reporter),
		workflow.WithLogger(g.logger),
		workflow.WithMetrics(g.metrics),
		workflow.WithOnDone(func(kind schedule.Kind, outcome string) {
			record(string(kind), outcome)
			if g.progress != nil {
				g.progress.UnitDone()
			}
		}),
	)
	manager := actor.NewManager(g.platform, g.auth, actor.Counts{
		FieldAgents:        g.cfg.Pool.FieldAgents,
		Hospitals:          g.cfg.Pool.Hospitals,
		RegistrationAgents: g.cfg.Pool.RegistrationAgents,
		Registrars:         g.cfg.Pool.Registrars,
	}, g.cfg.Admin.UserPassword, g.rnd, actor.WithLogger(g.logger), actor.WithMetrics(g.metrics))

	run := &locationRun{
		Generator: g,
		in:        in,
		brackets:  brackets,
		exec:      exec,
		driver:    driver,
	}
	defer func() {
		summary.PeakInFlight = exec.Peak()
		summary.FailedUnits = exec.Failed()
	}()

	for _, loc := range locations {
		pool, err := manager.CreatePool(ctx, admin, loc, in.dir)
		if errors.Is(err, actor.ErrNoEligibleOffice) {
			g.logger.Warn("skipping location", "location", loc.Name, "error", err)
			summary.SkippedLocations = append(summary.SkippedLocations, loc.Name)
			continue
		}
		if err != nil {
			return summary, g.fatal(ctx, err)
		}
		refresher.Start(ctx, pool.All()...)

		err = run.location(ctx, loc, pool)
		exec.Wait()
		pool.Release()
		if err != nil {
			return summary, g.fatal(ctx, err)
		}
		summary.Locations = append(summary.Locations, loc.Name)
		g.logger.Info("location done", "location", loc.Name, "units", summary.Units.Total())
	}
	if ctx.Err() != nil {
		return summary, context.Cause(ctx)
	}
	if len(summary.Locations) == 0 {
		return summary, fmt.Errorf("all %d selected locations skipped: %w", len(summary.SkippedLocations), actor.ErrNoEligibleOffice)
	}
	return summary, nil
}

// fatal prefers the cause of a cancelled run over the error that it caused.
func (g *Generator) fatal(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

func (g *Generator) signInAdmin(ctx context.Context) (*actor.Actor, error) {
	token, err := g.auth.Token(ctx, g.cfg.Admin.Username, g.cfg.Admin.Password)
	if err != nil {
		return nil, fmt.Errorf("signing in administrator: %w", err)
	}
	exp, err := auth.ExpiresAt(token)
	if err != nil {
		return nil, fmt.Errorf("%w: administrator token: %w", auth.ErrAuthenticationFailed, err)
	}
	return actor.New(g.cfg.Admin.Username, g.cfg.Admin.Password, actor.RoleNationalSystemAdmin, "", token, exp), nil
}

// inputs is what a run loads before creating any actor.
type inputs struct {
	dir            *gateway.Directory
	table          *stats.Table
	crudeDeathRate float64
}

// load fetches the directory, the statistics table and the crude death
// rate concurrently.
func (g *Generator) load(ctx context.Context, admin *actor.Actor) (*inputs, error) {
	var (
		locations  []gateway.Location
		facilities []gateway.Facility
		in         = &inputs{crudeDeathRate: g.cfg.Run.CrudeDeathRate}
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		locations, err = g.platform.Locations(ctx, admin)
		return err
	})
	eg.Go(func() (err error) {
		facilities, err = g.platform.Facilities(ctx, admin)
		return err
	})
	eg.Go(func() (err error) {
		if g.cfg.Statistics.Source == "sqlite" {
			in.table, err = stats.LoadSQLite(ctx, g.cfg.Statistics.Path)
			return err
		}
		in.table, err = stats.FetchTable(ctx, func(ctx context.Context) ([]byte, error) {
			return g.platform.Statistics(ctx, admin)
		})
		return err
	})
	if in.crudeDeathRate <= 0 {
		eg.Go(func() (err error) {
			in.crudeDeathRate, err = g.platform.CrudeDeathRate(ctx, admin)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("loading inputs: %w", err)
	}

	in.dir = gateway.NewDirectory(locations, facilities)
	g.logger.Info("inputs loaded",
		"locations", len(locations), "facilities", len(facilities),
		"statistics", in.table.Len(), "crudeDeathRate", in.crudeDeathRate)
	return in, nil
}

// selectLocations applies the configured filter, matching ids or names.
func (g *Generator) selectLocations(all []gateway.Location) ([]gateway.Location, error) {
	if len(g.cfg.Run.Locations) == 0 {
		if len(all) == 0 {
			return nil, ErrNoLocations
		}
		return all, nil
	}
	var out []gateway.Location
	for _, l := range all {
		for _, want := range g.cfg.Run.Locations {
			if l.ID == want || strings.EqualFold(l.Name, want) {
				out = append(out, l)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: filter %v matched none of %d districts", ErrNoLocations, g.cfg.Run.Locations, len(all))
	}
	return out, nil
}

func toBrackets(cfg []config.BracketConfig) schedule.Brackets {
	out := make(schedule.Brackets, 0, len(cfg))
	for _, b := range cfg {
		out = append(out, schedule.Bracket{Min: b.Min, Max: b.Max, Weight: b.Weight})
	}
	return out
}

// locationRun holds what every location of one run shares.
type locationRun struct {
	*Generator
	in       *inputs
	brackets schedule.Brackets
	exec     *executor.Executor
	driver   *workflow.Driver
}

// location submits every unit of loc, newest year and newest day first. It
// returns once the last unit has been admitted.
func (r *locationRun) location(ctx context.Context, loc gateway.Location, pool *actor.Pool) error {
	now := r.clock.Now()
	for year := r.cfg.Run.EndYear; year >= r.cfg.Run.StartYear; year-- {
		if year > now.Year() {
			r.logger.Warn("skipping future year", "year", year)
			continue
		}
		deaths, err := stats.ExpectedDeathsForYear(loc.ID, year, r.in.crudeDeathRate, r.in.table, now)
		if err != nil {
			return err
		}
		births, err := stats.ExpectedBirthsForYear(loc.ID, year, r.in.table, now)
		if err != nil {
			return err
		}
		plan := schedule.PlanYear(loc.ID, year, births, deaths, now, r.rnd)
		r.logger.Info("year planned", "location", loc.Name, "year", year,
			"days", plan.Days, "births", plan.TotalBirths(), "deathsPerDay", plan.DeathsPerDay)

		for d := plan.Days - 1; d >= 0; d-- {
			for _, unit := range plan.Units(d, r.brackets, r.rnd) {
				name := fmt.Sprintf("%s %s %s", unit.Kind, loc.Name, unit.Submitted.Format(time.DateOnly))
				err := r.exec.Go(ctx, name, func(ctx context.Context) error {
					return r.driver.Run(ctx, unit, pool, r.in.dir)
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}
