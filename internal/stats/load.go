package stats

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	_ "github.com/mattn/go-sqlite3"
)

// Identifier systems used by the country configuration's /statistics payload.
const (
	SystemTotalPopulation  = "http://opencrvs.org/specs/id/statistics-total-populations"
	SystemMalePopulation   = "http://opencrvs.org/specs/id/statistics-male-populations"
	SystemFemalePopulation = "http://opencrvs.org/specs/id/statistics-female-populations"
	SystemCrudeBirthRate   = "http://opencrvs.org/specs/id/statistics-crude-birth-rates"
)

// ParseJSON decodes the country configuration statistics payload:
//
//	[{"id": "<location>", "statistics": {"<system>": {"2021": 123, ...}, ...}}, ...]
//
// One Statistic is produced per (location, year) that appears under any system.
func ParseJSON(body []byte) (*Table, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON in statistics payload")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("statistics payload is not an array")
	}

	var rows []Statistic
	var parseErr error
	root.ForEach(func(_, district gjson.Result) bool {
		id := district.Get("id").String()
		if id == "" {
			parseErr = fmt.Errorf("statistics entry without id")
			return false
		}
		byYear := map[int]*Statistic{}
		get := func(year int) *Statistic {
			s, ok := byYear[year]
			if !ok {
				s = &Statistic{LocationID: id, Year: year}
				byYear[year] = s
			}
			return s
		}
		fields := []struct {
			system string
			field  Fields
			set    func(*Statistic, float64)
		}{
			{SystemTotalPopulation, FieldPopulation, func(s *Statistic, v float64) { s.Population = v }},
			{SystemMalePopulation, FieldMalePopulation, func(s *Statistic, v float64) { s.MalePopulation = v }},
			{SystemFemalePopulation, FieldFemalePopulation, func(s *Statistic, v float64) { s.FemalePopulation = v }},
			{SystemCrudeBirthRate, FieldCrudeBirthRate, func(s *Statistic, v float64) { s.CrudeBirthRate = v }},
		}
		stats := district.Get("statistics")
		for _, f := range fields {
			stats.Get(gjson.Escape(f.system)).ForEach(func(yearKey, value gjson.Result) bool {
				year, err := strconv.Atoi(yearKey.String())
				if err != nil {
					parseErr = fmt.Errorf("location %s: invalid year %q under %s", id, yearKey.String(), f.system)
					return false
				}
				if value.Type == gjson.Null {
					return true
				}
				s := get(year)
				f.set(s, value.Float())
				s.Present |= f.field
				return true
			})
			if parseErr != nil {
				return false
			}
		}
		years := make([]int, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			rows = append(rows, *byYear[y])
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return NewTable(rows), nil
}

// Fetcher returns a raw statistics payload, e.g. from the country
// configuration service.
type Fetcher func(ctx context.Context) ([]byte, error)

// FetchTable loads and parses the statistics payload returned by fetch.
func FetchTable(ctx context.Context, fetch Fetcher) (*Table, error) {
	body, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching statistics: %w", err)
	}
	return ParseJSON(body)
}

// LoadSQLite reads the table from a SQLite database containing the columns
// below. A NULL column counts as missing.
//
//	statistics(location_id TEXT, year INTEGER, population REAL,
//	           male_population REAL, female_population REAL, crude_birth_rate REAL)
func LoadSQLite(ctx context.Context, path string) (*Table, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening statistics database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT location_id, year, population, male_population, female_population, crude_birth_rate
		FROM statistics`)
	if err != nil {
		return nil, fmt.Errorf("querying statistics: %w", err)
	}
	defer rows.Close()

	var out []Statistic
	for rows.Next() {
		var (
			s                        Statistic
			total, male, female, cbr sql.NullFloat64
		)
		if err := rows.Scan(&s.LocationID, &s.Year, &total, &male, &female, &cbr); err != nil {
			return nil, fmt.Errorf("scanning statistics row: %w", err)
		}
		for _, c := range []struct {
			v     sql.NullFloat64
			field Fields
			into  *float64
		}{
			{total, FieldPopulation, &s.Population},
			{male, FieldMalePopulation, &s.MalePopulation},
			{female, FieldFemalePopulation, &s.FemalePopulation},
			{cbr, FieldCrudeBirthRate, &s.CrudeBirthRate},
		} {
			if c.v.Valid {
				*c.into = c.v.Float64
				s.Present |= c.field
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading statistics rows: %w", err)
	}
	return NewTable(out), nil
}
