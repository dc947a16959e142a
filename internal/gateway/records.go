package gateway

import (
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// signaturePDF is attached to every issued certificate.
//
//go:embed signature.pdf
var signaturePDF []byte

const addressFields = `address { type line district state city postalCode country }`
const nameFields = `name { use firstNames familyName }`
const identifierFields = `identifier { id type otherType }`

const fetchBirthQuery = `
query data($id: ID!) {
  fetchBirthRegistration(id: $id) {
    _fhirIDMap
    id
    child { id multipleBirth ` + nameFields + ` birthDate gender }
    mother { id ` + nameFields + ` birthDate maritalStatus nationality ` + identifierFields + ` ` + addressFields + ` }
    registration {
      id
      contact
      contactPhoneNumber
      trackingId
      registrationNumber
      status { type timestamp }
    }
    presentAtBirthRegistration
    attendantAtBirth
    weightAtBirth
    birthType
  }
}`

const fetchDeathQuery = `
query data($id: ID!) {
  fetchDeathRegistration(id: $id) {
    _fhirIDMap
    id
    deceased {
      id ` + nameFields + ` ` + identifierFields + `
      nationality birthDate gender maritalStatus ` + addressFields + `
      deceased { deceased deathDate }
    }
    mannerOfDeath
    causeOfDeath
    eventLocation { id type ` + addressFields + ` }
    informant {
      id
      relationship
      individual { id nationality ` + identifierFields + ` ` + nameFields + ` ` + addressFields + ` }
    }
    father { id ` + nameFields + ` }
    mother { id ` + nameFields + ` }
    registration {
      id
      contact
      contactPhoneNumber
      trackingId
      registrationNumber
      status { type timestamp }
    }
  }
}`

const markBirthRegisteredMutation = `
mutation submitMutation($id: ID!, $details: BirthRegistrationInput) {
  markBirthAsRegistered(id: $id, details: $details) {
    id
  }
}`

const markDeathRegisteredMutation = `
mutation submitMutation($id: ID!, $details: DeathRegistrationInput) {
  markDeathAsRegistered(id: $id, details: $details) {
    id
  }
}`

const markBirthCertifiedMutation = `
mutation submitMutation($id: ID!, $details: BirthRegistrationInput!) {
  markBirthAsCertified(id: $id, details: $details)
}`

const markDeathCertifiedMutation = `
mutation submitMutation($id: ID!, $details: DeathRegistrationInput!) {
  markDeathAsCertified(id: $id, details: $details)
}`

func (c *Client) fetchBirth(ctx context.Context, as Caller, id string) (gjson.Result, error) {
	return c.graphql(ctx, as, "fetchBirthRegistration", "fetch-"+id, fetchBirthQuery,
		map[string]any{"id": id}, "fetchBirthRegistration")
}

func (c *Client) fetchDeath(ctx context.Context, as Caller, id string) (gjson.Result, error) {
	return c.graphql(ctx, as, "fetchDeathRegistration", "fetch-"+id, fetchDeathQuery,
		map[string]any{"id": id}, "fetchDeathRegistration")
}

// RegisterBirth fetches the declaration and marks it as registered. It
// returns the id of the registered record.
func (c *Client) RegisterBirth(ctx context.Context, as Caller, id string) (string, error) {
	record, err := c.fetchBirth(ctx, as, id)
	if err != nil {
		return "", err
	}
	createdAt, err := nextDay(record)
	if err != nil {
		return "", fmt.Errorf("registering birth %s: %w", id, err)
	}
	// The metrics service rejects tasks without a time-logged extension.
	const quarter = 15 * time.Minute
	logged := quarter + time.Duration(c.fake.Float64()*float64(quarter))

	details := birthDetails(record, createdAt)
	reg := details["registration"].(map[string]any)
	reg["status"] = []any{map[string]any{
		"timeLoggedMS": logged.Milliseconds(),
		"timestamp":    isoTime(createdAt),
	}}
	// Notifications carry a reduced data set.
	if details["birthType"] == nil {
		details["birthType"] = "SINGLE"
	}
	details["attendantAtBirth"] = value(record, "attendantAtBirth")
	details["weightAtBirth"] = value(record, "weightAtBirth")
	nullsToEmptyString(details)

	res, err := c.graphql(ctx, as, "markBirthAsRegistered", "registration-"+id,
		markBirthRegisteredMutation, map[string]any{"id": id, "details": details}, "markBirthAsRegistered.id")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// CertifyBirth fetches the registered record and issues a paid certificate.
func (c *Client) CertifyBirth(ctx context.Context, as Caller, id string) (string, error) {
	record, err := c.fetchBirth(ctx, as, id)
	if err != nil {
		return "", err
	}
	createdAt, err := nextDay(record)
	if err != nil {
		return "", fmt.Errorf("certifying birth %s: %w", id, err)
	}

	details := birthDetails(record, createdAt)
	reg := details["registration"].(map[string]any)
	reg["registrationNumber"] = value(record, "registration.registrationNumber")
	reg["status"] = []any{map[string]any{"timestamp": isoTime(createdAt)}}
	reg["certificates"] = certificate(createdAt)
	nullsToEmptyString(details)

	res, err := c.graphql(ctx, as, "markBirthAsCertified", "registration-"+id,
		markBirthCertifiedMutation, map[string]any{"id": id, "details": details}, "markBirthAsCertified")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// RegisterDeath fetches the declaration and marks it as registered.
func (c *Client) RegisterDeath(ctx context.Context, as Caller, id string) (string, error) {
	record, err := c.fetchDeath(ctx, as, id)
	if err != nil {
		return "", err
	}
	createdAt, err := nextDay(record)
	if err != nil {
		return "", fmt.Errorf("registering death %s: %w", id, err)
	}

	details := c.deathDetails(record, createdAt)
	nullsToEmptyString(details)

	res, err := c.graphql(ctx, as, "markDeathAsRegistered", "registration-"+id,
		markDeathRegisteredMutation, map[string]any{"id": id, "details": details}, "markDeathAsRegistered.id")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// CertifyDeath fetches the registered record and issues a paid certificate.
func (c *Client) CertifyDeath(ctx context.Context, as Caller, id string) (string, error) {
	record, err := c.fetchDeath(ctx, as, id)
	if err != nil {
		return "", err
	}
	createdAt, err := nextDay(record)
	if err != nil {
		return "", fmt.Errorf("certifying death %s: %w", id, err)
	}

	details := c.deathDetails(record, createdAt)
	reg := details["registration"].(map[string]any)
	reg["registrationNumber"] = value(record, "registration.registrationNumber")
	reg["certificates"] = certificate(createdAt)
	nullsToEmptyString(details)

	res, err := c.graphql(ctx, as, "markDeathAsCertified", "registration-"+id,
		markDeathCertifiedMutation, map[string]any{"id": id, "details": details}, "markDeathAsCertified")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// nextDay is one day after the record's latest status change.
func nextDay(record gjson.Result) (time.Time, error) {
	statuses := record.Get("registration.status").Array()
	if len(statuses) == 0 {
		return time.Time{}, fmt.Errorf("record %s has no status history", record.Get("id").String())
	}
	last, err := parseTimestamp(statuses[len(statuses)-1].Get("timestamp"))
	if err != nil {
		return time.Time{}, err
	}
	return last.Add(24 * time.Hour), nil
}

func registration(record gjson.Result) map[string]any {
	return map[string]any{
		"contact":             value(record, "registration.contact"),
		"contactPhoneNumber":  value(record, "registration.contactPhoneNumber"),
		"contactRelationship": "",
		"_fhirID":             value(record, "registration.id"),
		"trackingId":          value(record, "registration.trackingId"),
		"attachments":         []any{},
		"draftId":             value(record, "id"),
	}
}

func birthDetails(record gjson.Result, createdAt time.Time) map[string]any {
	return map[string]any{
		"createdAt":                  isoTime(createdAt),
		"registration":               registration(record),
		"presentAtBirthRegistration": value(record, "presentAtBirthRegistration"),
		"child": map[string]any{
			"name":          value(record, "child.name"),
			"gender":        value(record, "child.gender"),
			"birthDate":     value(record, "child.birthDate"),
			"multipleBirth": value(record, "child.multipleBirth"),
			"_fhirID":       value(record, "child.id"),
		},
		"birthType": value(record, "birthType"),
		"eventLocation": map[string]any{
			"_fhirID": value(record, "_fhirIDMap.eventLocation"),
		},
		"mother": map[string]any{
			"nationality":   value(record, "mother.nationality"),
			"identifier":    value(record, "mother.identifier"),
			"name":          value(record, "mother.name"),
			"maritalStatus": value(record, "mother.maritalStatus"),
			"address":       value(record, "mother.address"),
			"_fhirID":       value(record, "mother.id"),
		},
		"_fhirIDMap": value(record, "_fhirIDMap"),
	}
}

func (c *Client) deathDetails(record gjson.Result, createdAt time.Time) map[string]any {
	reg := registration(record)
	reg["status"] = []any{map[string]any{
		"timeLoggedMS": c.fake.IntRange(0, 9999),
	}}

	eventLocation := value(record, "eventLocation")
	if m, ok := eventLocation.(map[string]any); ok {
		delete(m, "id")
	}

	return map[string]any{
		"createdAt":    isoTime(createdAt),
		"registration": reg,
		"deceased": map[string]any{
			"identifier":    value(record, "deceased.identifier"),
			"nationality":   value(record, "deceased.nationality"),
			"name":          value(record, "deceased.name"),
			"birthDate":     value(record, "deceased.birthDate"),
			"gender":        value(record, "deceased.gender"),
			"maritalStatus": value(record, "deceased.maritalStatus"),
			"address":       value(record, "deceased.address"),
			"_fhirID":       value(record, "deceased.id"),
			"deceased":      value(record, "deceased.deceased"),
		},
		"mannerOfDeath": value(record, "mannerOfDeath"),
		"eventLocation": eventLocation,
		"causeOfDeath":  value(record, "causeOfDeath"),
		"informant": map[string]any{
			"individual": map[string]any{
				"nationality": value(record, "informant.individual.nationality"),
				"identifier":  value(record, "informant.individual.identifier"),
				"name":        value(record, "informant.individual.name"),
				"address":     value(record, "informant.individual.address"),
				"_fhirID":     value(record, "informant.individual.id"),
			},
			"relationship": value(record, "informant.relationship"),
			"_fhirID":      value(record, "informant.id"),
		},
		"father": map[string]any{
			"name":    value(record, "father.name"),
			"_fhirID": value(record, "father.id"),
		},
		"mother": map[string]any{
			"name":    value(record, "mother.name"),
			"_fhirID": value(record, "mother.id"),
		},
		"_fhirIDMap": value(record, "_fhirIDMap"),
	}
}

func certificate(createdAt time.Time) []any {
	return []any{map[string]any{
		"hasShowedVerifiedDocument": false,
		"payments": []any{map[string]any{
			"type":    "MANUAL",
			"total":   10,
			"amount":  10,
			"outcome": "COMPLETED",
			"date":    isoTime(createdAt),
		}},
		"data":      "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(signaturePDF),
		"collector": map[string]any{"relationship": "MOTHER"},
	}}
}

// value returns the decoded JSON at path, or nil when it is absent.
func value(record gjson.Result, path string) any {
	return record.Get(path).Value()
}

// nullsToEmptyString replaces every nil in a decoded JSON tree with "". The
// platform's input types reject explicit nulls.
func nullsToEmptyString(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				t[k] = ""
				continue
			}
			nullsToEmptyString(child)
		}
	case []any:
		for i, child := range t {
			if child == nil {
				t[i] = ""
				continue
			}
			nullsToEmptyString(child)
		}
	}
}
