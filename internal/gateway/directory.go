package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Facility types used by the country configuration.
const (
	FacilityCRVSOffice     = "CRVS_OFFICE"
	FacilityHealthFacility = "HEALTH_FACILITY"
)

const jurisdictionDistrict = "DISTRICT"

// Location is an administrative area.
type Location struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Alias            string `json:"alias"`
	PhysicalType     string `json:"physicalType"`
	JurisdictionType string `json:"jurisdictionType"`
	Type             string `json:"type"`
	PartOf           string `json:"partOf"`
}

// StateID returns the id of the parent area referenced by PartOf
// ("Location/<id>").
func (l Location) StateID() string { return partOfID(l.PartOf) }

// Facility is a CRVS office or a health facility.
type Facility struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Alias        string `json:"alias"`
	Address      string `json:"address"`
	PhysicalType string `json:"physicalType"`
	Type         string `json:"type"`
	PartOf       string `json:"partOf"`
}

// LocationID returns the id of the district the facility belongs to.
func (f Facility) LocationID() string { return partOfID(f.PartOf) }

func partOfID(ref string) string {
	if _, id, ok := strings.Cut(ref, "/"); ok {
		return id
	}
	return ref
}

// Directory is the set of locations and facilities loaded at startup. It is
// read-only after construction.
type Directory struct {
	Locations  []Location
	Facilities []Facility

	locations  map[string]Location
	facilities map[string]Facility
}

// NewDirectory indexes locations and facilities.
func NewDirectory(locations []Location, facilities []Facility) *Directory {
	d := &Directory{
		Locations:  locations,
		Facilities: facilities,
		locations:  make(map[string]Location, len(locations)),
		facilities: make(map[string]Facility, len(facilities)),
	}
	for _, l := range locations {
		d.locations[l.ID] = l
	}
	for _, f := range facilities {
		d.facilities[f.ID] = f
	}
	return d
}

// Location looks a district up by id.
func (d *Directory) Location(id string) (Location, bool) {
	l, ok := d.locations[id]
	return l, ok
}

// Facility looks a facility up by id.
func (d *Directory) Facility(id string) (Facility, bool) {
	f, ok := d.facilities[id]
	return f, ok
}

// FacilitiesIn returns the facilities of type kind inside district locationID.
func (d *Directory) FacilitiesIn(locationID, kind string) []Facility {
	var out []Facility
	for _, f := range d.Facilities {
		if f.Type == kind && f.LocationID() == locationID {
			out = append(out, f)
		}
	}
	return out
}

// Locations returns the DISTRICT jurisdictions of the country configuration.
func (c *Client) Locations(ctx context.Context, as Caller) ([]Location, error) {
	locations, err := fetchKeyed[Location](ctx, c, as, "locations")
	if err != nil {
		return nil, err
	}
	districts := locations[:0]
	for _, l := range locations {
		if l.JurisdictionType == jurisdictionDistrict {
			districts = append(districts, l)
		}
	}
	return districts, nil
}

// Facilities returns every facility of the country configuration.
func (c *Client) Facilities(ctx context.Context, as Caller) ([]Facility, error) {
	return fetchKeyed[Facility](ctx, c, as, "facilities")
}

// fetchKeyed reads {"data": {"<id>": {...}, ...}} into a slice ordered by id.
func fetchKeyed[T any](ctx context.Context, c *Client, as Caller, resource string) ([]T, error) {
	body, err := c.rest(ctx, as, resource, c.cfg.CountryConfigURL+"/"+resource, correlationID(resource), nil)
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return nil, fmt.Errorf("%s: response has no data object", resource)
	}

	keys := make([]string, 0)
	raw := map[string]string{}
	data.ForEach(func(k, v gjson.Result) bool {
		keys = append(keys, k.String())
		raw[k.String()] = v.Raw
		return true
	})
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		var item T
		if err := json.UnmarshalFromString(raw[k], &item); err != nil {
			return nil, fmt.Errorf("%s: decoding %s: %w", resource, k, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// CrudeDeathRate returns deaths per 1000 people per year.
func (c *Client) CrudeDeathRate(ctx context.Context, as Caller) (float64, error) {
	body, err := c.rest(ctx, as, "crude-death-rate", c.cfg.CountryConfigURL+"/crude-death-rate", correlationID("crude-death-rate"), nil)
	if err != nil {
		return 0, err
	}
	rate := gjson.GetBytes(body, "crudeDeathRate")
	if rate.Type != gjson.Number {
		return 0, fmt.Errorf("crude-death-rate: missing crudeDeathRate in %s", body)
	}
	return rate.Float(), nil
}

// Statistics returns the raw /statistics payload for stats.ParseJSON.
func (c *Client) Statistics(ctx context.Context, as Caller) ([]byte, error) {
	return c.rest(ctx, as, "statistics", c.cfg.CountryConfigURL+"/statistics", correlationID("statistics"), nil)
}
