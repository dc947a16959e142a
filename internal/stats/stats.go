// Package stats holds the demographic statistics table and turns it into
// expected yearly birth and death counts for a district.
package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStatisticsNotFound is returned when a (location, year) pair has no data.
// No synthetic population can be produced without it.
var ErrStatisticsNotFound = errors.New("statistics not found")

// Fields is a set of Statistic values that were present in the source.
type Fields uint8

const (
	FieldPopulation Fields = 1 << iota
	FieldMalePopulation
	FieldFemalePopulation
	FieldCrudeBirthRate

	birthFields = FieldMalePopulation | FieldFemalePopulation | FieldCrudeBirthRate
)

// Has reports whether every field of want is in f.
func (f Fields) Has(want Fields) bool { return f&want == want }

// Statistic is one district's aggregate counts for one year. A value missing
// from the source is zero and absent from Present; an explicit zero is in
// Present.
type Statistic struct {
	LocationID       string
	Year             int
	Population       float64
	MalePopulation   float64
	FemalePopulation float64
	CrudeBirthRate   float64
	Present          Fields
}

type key struct {
	location string
	year     int
}

// Table is an immutable lookup of statistics by (location, year).
type Table struct {
	rows map[key]Statistic
}

// NewTable builds a table from rows. Later rows replace earlier ones with the same key.
func NewTable(rows []Statistic) *Table {
	t := &Table{rows: make(map[key]Statistic, len(rows))}
	for _, r := range rows {
		t.rows[key{r.LocationID, r.Year}] = r
	}
	return t
}

// Lookup returns the statistic for location and year.
func (t *Table) Lookup(location string, year int) (Statistic, error) {
	if t != nil {
		if s, ok := t.rows[key{location, year}]; ok {
			return s, nil
		}
	}
	return Statistic{}, fmt.Errorf("%w: location %s, year %d", ErrStatisticsNotFound, location, year)
}

// Len returns the number of (location, year) rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Births is the expected number of births in a year, split by sex.
type Births struct {
	Male   float64
	Female float64
}

// Total returns Male + Female.
func (b Births) Total() float64 { return b.Male + b.Female }

// lookupYear is the year whose statistics describe year. The current year is
// not closed yet, so the last full year stands in for it.
func lookupYear(year int, now time.Time) int {
	if year == now.Year() {
		return year - 1
	}
	return year
}

// ExpectedDeathsForYear returns (population/1000) * crudeDeathRate for the
// location's population in year.
func ExpectedDeathsForYear(location string, year int, crudeDeathRate float64, t *Table, now time.Time) (float64, error) {
	s, err := t.Lookup(location, lookupYear(year, now))
	if err != nil {
		return 0, err
	}
	if !s.Present.Has(FieldPopulation) {
		return 0, fmt.Errorf("%w: location %s, year %d has no total population", ErrStatisticsNotFound, location, s.Year)
	}
	return (s.Population / 1000) * crudeDeathRate, nil
}

// ExpectedBirthsForYear returns the expected male and female births for the
// location in year. For the current year both are scaled down to the part of
// the year that has elapsed.
func ExpectedBirthsForYear(location string, year int, t *Table, now time.Time) (Births, error) {
	s, err := t.Lookup(location, lookupYear(year, now))
	if err != nil {
		return Births{}, err
	}
	if !s.Present.Has(birthFields) {
		return Births{}, fmt.Errorf("%w: location %s, year %d lacks%s", ErrStatisticsNotFound, location, s.Year, missing(birthFields&^s.Present))
	}

	b := Births{
		Male:   (s.MalePopulation / 1000) * s.CrudeBirthRate,
		Female: (s.FemalePopulation / 1000) * s.CrudeBirthRate,
	}
	if year == now.Year() {
		elapsed := float64(now.YearDay()) / float64(DaysInYear(year))
		b.Male *= elapsed
		b.Female *= elapsed
	}
	return b, nil
}

func missing(f Fields) string {
	var out string
	for _, n := range []struct {
		field Fields
		name  string
	}{
		{FieldPopulation, "total population"},
		{FieldMalePopulation, "male population"},
		{FieldFemalePopulation, "female population"},
		{FieldCrudeBirthRate, "crude birth rate"},
	} {
		if f.Has(n.field) {
			out += " " + n.name + ","
		}
	}
	return strings.TrimSuffix(out, ",")
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
