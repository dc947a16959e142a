// Package schedule turns expected yearly event counts into a per-day table of
// synthetic births and deaths and expands each day into work units.
package schedule

import (
	"math"
	"time"

	"vitalgen/internal/stats"
)

// Source is the randomness the scheduler needs. *core.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Kind distinguishes the event a work unit declares.
type Kind string

const (
	KindBirth Kind = "birth"
	KindDeath Kind = "death"
)

// Sex of the registered person.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

const (
	// probabilityDeathMale is the share of deaths assigned to males.
	probabilityDeathMale = 0.6

	day = 24 * time.Hour
)

// WorkUnit describes one synthetic event, consumed exactly once by the driver.
type WorkUnit struct {
	Kind       Kind
	Sex        Sex
	LocationID string
	Day        int       // index into the year, 0 = 1 January
	Occurred   time.Time // birth date for births, death date for deaths
	Submitted  time.Time // declaration timestamp
	BornAt     time.Time // deceased's birth date; zero for births
}

// Scatter performs round(total) independent trials, each adding one event to a
// uniformly chosen day. The daily counts follow a multinomial distribution and
// always sum to round(total).
func Scatter(total float64, days int, rnd Source) []int {
	counts := make([]int, days)
	if days < 1 || total <= 0 {
		return counts
	}
	n := int(math.Round(total))
	for i := 0; i < n; i++ {
		counts[rnd.IntN(days)]++
	}
	return counts
}

// DeathsPerDay spreads a yearly death total flat over 365 days.
func DeathsPerDay(totalDeaths float64) int {
	return int(math.Round(totalDeaths / 365))
}

// YearPlan is the day schedule for one (location, year).
type YearPlan struct {
	LocationID   string
	Year         int
	Days         int // number of scheduled days
	Males        []int
	Females      []int
	DeathsPerDay int

	start time.Time // midnight, 1 January
	now   time.Time
}

// PlanYear scatters the expected births over the year and fixes the daily
// death count. For the current year only days up to and including today are
// scheduled.
func PlanYear(location string, year int, births stats.Births, deaths float64, now time.Time, rnd Source) *YearPlan {
	days := stats.DaysInYear(year)
	if year == now.Year() {
		days = now.YearDay()
	}
	return &YearPlan{
		LocationID:   location,
		Year:         year,
		Days:         days,
		Females:      Scatter(births.Female, days, rnd),
		Males:        Scatter(births.Male, days, rnd),
		DeathsPerDay: DeathsPerDay(deaths),
		start:        time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location()),
		now:          now,
	}
}

// Date returns midnight of day d.
func (p *YearPlan) Date(d int) time.Time {
	return p.start.AddDate(0, 0, d)
}

// Births returns the number of births scheduled on day d.
func (p *YearPlan) Births(d int) int {
	return p.Males[d] + p.Females[d]
}

// TotalBirths returns the number of births in the whole plan.
func (p *YearPlan) TotalBirths() int {
	var n int
	for d := 0; d < p.Days; d++ {
		n += p.Births(d)
	}
	return n
}

// Units expands day d into work units, deaths first. Each birth draws its sex
// again against the day's male share, so the realised split can differ from
// Males[d] and Females[d].
func (p *YearPlan) Units(d int, brackets Brackets, rnd Source) []WorkUnit {
	units := make([]WorkUnit, 0, p.DeathsPerDay+p.Births(d))

	for i := 0; i < p.DeathsPerDay; i++ {
		submitted := p.submissionTime(d, rnd)
		sex := Female
		if rnd.Float64() > 1-probabilityDeathMale {
			sex = Male
		}
		// Deceased is between two days and twenty years old at declaration.
		age := 2*day + time.Duration(rnd.Float64()*float64(20*365*day-2*day))
		born := submitted.Add(-age)
		died := submitted.Add(-time.Duration(rnd.Float64() * float64(20*day)))
		if earliest := born.Add(2 * day); died.Before(earliest) {
			died = earliest
		}
		units = append(units, WorkUnit{
			Kind:       KindDeath,
			Sex:        sex,
			LocationID: p.LocationID,
			Day:        d,
			Occurred:   died,
			Submitted:  submitted,
			BornAt:     born,
		})
	}

	total := p.Births(d)
	if total == 0 {
		return units
	}
	probabilityMale := float64(p.Males[d]) / float64(total)
	for i := 0; i < total; i++ {
		sex := Female
		if rnd.Float64() < probabilityMale {
			sex = Male
		}
		submitted := p.submissionTime(d, rnd)
		units = append(units, WorkUnit{
			Kind:       KindBirth,
			Sex:        sex,
			LocationID: p.LocationID,
			Day:        d,
			Occurred:   submitted.AddDate(0, 0, -brackets.Sample(rnd)),
			Submitted:  submitted,
		})
	}
	return units
}

// submissionTime picks a random moment on day d, never later than now.
// Distinct timestamps keep downstream time-series points apart.
func (p *YearPlan) submissionTime(d int, rnd Source) time.Time {
	midnight := p.Date(d)
	span := day
	if elapsed := p.now.Sub(midnight); elapsed < span {
		span = elapsed
	}
	if span <= 0 {
		return midnight
	}
	return midnight.Add(time.Duration(rnd.Float64() * float64(span)))
}
