package gateway

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// country is the ISO code used by the demo country configuration.
const country = "FAR"

// Birth describes a birth to declare.
type Birth struct {
	Sex       string // "male" or "female"
	BirthDate time.Time
	Submitted time.Time
	Location  Location
}

// Death describes a death to declare.
type Death struct {
	Sex       string
	BornAt    time.Time
	DiedAt    time.Time
	Submitted time.Time
	Location  Location
}

const createBirthMutation = `
mutation submitMutation($details: BirthRegistrationInput!) {
  createBirthRegistration(details: $details) {
    compositionId
  }
}`

const createDeathMutation = `
mutation submitMutation($details: DeathRegistrationInput!) {
  createDeathRegistration(details: $details) {
    trackingId
    compositionId
  }
}`

// DeclareBirth submits a full birth declaration and returns its composition id.
func (c *Client) DeclareBirth(ctx context.Context, as Caller, b Birth) (string, error) {
	p := c.fake.Person()
	// Filling in the form takes 100 to 200 seconds.
	filling := time.Duration(100000+c.fake.IntRange(0, 100000)) * time.Millisecond

	details := map[string]any{
		"createdAt": isoTime(b.Submitted),
		"registration": map[string]any{
			"contact":             "MOTHER",
			"contactPhoneNumber":  c.fake.PhoneNumber(),
			"contactRelationship": "",
			"status": []any{map[string]any{
				"timestamp":    isoTime(b.Submitted.Add(-filling)),
				"timeLoggedMS": filling.Milliseconds(),
			}},
			"draftId": uuid.NewString(),
		},
		"presentAtBirthRegistration": "MOTHER",
		"child": map[string]any{
			"name":          names(p.FirstNames, p.FamilyName),
			"gender":        b.Sex,
			"birthDate":     isoDate(b.BirthDate),
			"multipleBirth": c.fake.IntRange(0, 5),
		},
		"attendantAtBirth": "PHYSICIAN",
		"birthType":        "SINGLE",
		"weightAtBirth":    math.Round(25+20*c.fake.Float64()*10) / 10,
		"eventLocation": map[string]any{
			"address": c.districtAddress("", b.Location),
			"type":    "PRIVATE_HOME",
		},
		"mother": map[string]any{
			"nationality":   []string{country},
			"identifier":    []any{map[string]any{"id": c.fake.NationalID(), "type": "NATIONAL_ID"}},
			"name":          names("", p.FamilyName),
			"birthDate":     isoDate(b.BirthDate.AddDate(-20, 0, 0)),
			"maritalStatus": "MARRIED",
			"address": []any{
				c.districtAddress("CURRENT", b.Location),
				c.districtAddress("PERMANENT", b.Location),
			},
		},
	}

	res, err := c.graphql(ctx, as, "createBirthRegistration",
		"declare-"+p.FirstNames+"-"+p.FamilyName,
		createBirthMutation, map[string]any{"details": details}, "createBirthRegistration.compositionId")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// NotifyBirth sends a hospital birth notification for a birth at facility
// and returns the composition id of the incomplete declaration it creates.
func (c *Client) NotifyBirth(ctx context.Context, as Caller, sex string, birthDate time.Time, facility Facility) (string, error) {
	p := c.fake.Person()
	payload := map[string]any{
		"dhis2_event": "1111",
		"child": map[string]any{
			"first_names": p.FirstNames,
			"last_name":   p.FamilyName,
			"weight":      fmt.Sprint(2500 + c.fake.IntRange(0, 2000)),
			"sex":         sex,
		},
		"father": map[string]any{
			"first_names": "Dad",
			"last_name":   p.FamilyName,
			"nid":         c.fake.NationalID(),
		},
		"mother": map[string]any{
			"first_names": "Mom",
			"last_name":   p.FamilyName,
			"dob":         isoDate(birthDate.AddDate(-20, 0, 0)),
			"nid":         c.fake.NationalID(),
		},
		"phone_number":   c.fake.PhoneNumber(),
		"date_birth":     isoDate(birthDate),
		"place_of_birth": facility.ID,
	}
	body, err := c.rest(ctx, as, "birthNotification", c.cfg.CountryConfigURL+"/dhis2-notification/birth",
		"birth-notification-"+p.FirstNames+"-"+p.FamilyName, payload)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "compositionId").String()
	if id == "" {
		return "", &RemoteError{Operation: "birthNotification", Status: 200, Body: body}
	}
	return id, nil
}

// DeclareDeath submits a death declaration and returns its composition id.
func (c *Client) DeclareDeath(ctx context.Context, as Caller, d Death) (string, error) {
	p := c.fake.Person()
	permanent := c.districtAddress("PERMANENT", d.Location)

	details := map[string]any{
		"createdAt": isoTime(d.Submitted),
		"registration": map[string]any{
			"contact":             "APPLICANT",
			"contactPhoneNumber":  c.fake.PhoneNumber(),
			"contactRelationship": "",
			"draftId":             uuid.NewString(),
			"status":              []any{map[string]any{}},
		},
		"causeOfDeath": "Natural cause",
		"deceased": map[string]any{
			"identifier": []any{
				map[string]any{"id": c.fake.NationalID(), "type": "NATIONAL_ID"},
				map[string]any{"id": c.fake.NationalID(), "type": "SOCIAL_SECURITY_NO"},
			},
			"nationality":   []string{country},
			"name":          names(p.FirstNames, p.FamilyName),
			"birthDate":     isoDate(d.BornAt),
			"gender":        d.Sex,
			"maritalStatus": "MARRIED",
			"address":       []any{permanent},
			"deceased": map[string]any{
				"deceased":  true,
				"deathDate": isoDate(d.DiedAt),
			},
		},
		"mannerOfDeath": "NATURAL_CAUSES",
		"eventLocation": map[string]any{
			"address": c.districtAddress("PERMANENT", d.Location),
			"type":    "PERMANENT",
		},
		"informant": map[string]any{
			"individual": map[string]any{
				"nationality": []string{country},
				"identifier":  []any{map[string]any{"id": c.fake.NationalID(), "type": "NATIONAL_ID"}},
				"name":        names(p.FirstNames, p.FamilyName),
				"address":     []any{c.districtAddress("PERMANENT", d.Location)},
			},
			"relationship": "SON",
		},
		"father": map[string]any{"name": names("", p.FamilyName)},
		"mother": map[string]any{"name": names("", p.FamilyName)},
	}

	res, err := c.graphql(ctx, as, "createDeathRegistration",
		"declare-death-"+p.FirstNames+"-"+p.FamilyName,
		createDeathMutation, map[string]any{"details": details}, "createDeathRegistration.compositionId")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func names(firstNames, familyName string) []any {
	name := map[string]any{"use": "en", "familyName": familyName}
	if firstNames != "" {
		name["firstNames"] = firstNames
	}
	return []any{name}
}

// districtAddress builds an urban street address inside the location. An
// empty kind leaves the address type unset.
func (c *Client) districtAddress(kind string, l Location) map[string]any {
	a := c.fake.Address()
	addr := map[string]any{
		"country":    country,
		"state":      l.StateID(),
		"district":   l.ID,
		"city":       a.City,
		"postalCode": a.PostalCode,
		"line":       []string{a.Street, a.PostalCode, "", "", "", "", "URBAN"},
	}
	if kind != "" {
		addr["type"] = kind
	}
	return addr
}
