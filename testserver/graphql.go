package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Record statuses.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDeclared   = "DECLARED"
	StatusRegistered = "REGISTERED"
	StatusCertified  = "CERTIFIED"
)

type status struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type record struct {
	id                 string
	kind               string // "birth" or "death"
	trackingID         string
	registrationNumber string
	statuses           []status
	details            map[string]any
}

// RecordSummary is the externally visible state of a record.
type RecordSummary struct {
	ID       string
	Kind     string
	Statuses []string
}

// Records returns every stored record.
func (s *Server) Records() []RecordSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordSummary, 0, len(s.records))
	for _, r := range s.records {
		sum := RecordSummary{ID: r.id, Kind: r.kind}
		for _, st := range r.statuses {
			sum.Statuses = append(sum.Statuses, st.Type)
		}
		out = append(out, sum)
	}
	return out
}

type gqlError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// operations in match order. No name is a substring of another.
var operations = []string{
	"createOrUpdateUser",
	"activateUser",
	"createBirthRegistration",
	"createDeathRegistration",
	"fetchBirthRegistration",
	"fetchDeathRegistration",
	"markBirthAsRegistered",
	"markDeathAsRegistered",
	"markBirthAsCertified",
	"markDeathAsCertified",
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	query := gjson.GetBytes(body, "query").String()
	vars := gjson.GetBytes(body, "variables")

	op := ""
	for _, candidate := range operations {
		if strings.Contains(query, candidate) {
			op = candidate
			break
		}
	}
	if op == "" {
		writeGraphQLError(w, http.StatusBadRequest, "unknown operation", "GRAPHQL_VALIDATION_FAILED")
		return
	}
	if s.shouldFail(op) {
		writeGraphQLError(w, http.StatusOK, "injected failure", "INTERNAL_SERVER_ERROR")
		return
	}

	p := principalFrom(r.Context())
	var (
		result any
		err    error
	)
	switch op {
	case "createOrUpdateUser":
		result, err = s.createUser(p, vars.Get("user"))
	case "activateUser":
		result, err = s.activateUser(p, vars)
	case "createBirthRegistration", "createDeathRegistration":
		result, err = s.declare(p, op, vars.Get("details"))
	case "fetchBirthRegistration", "fetchDeathRegistration":
		result, err = s.fetch(vars.Get("id").String())
	case "markBirthAsRegistered", "markDeathAsRegistered":
		result, err = s.transition(p, vars, StatusRegistered, false)
	case "markBirthAsCertified", "markDeathAsCertified":
		result, err = s.transition(p, vars, StatusCertified, true)
	}
	if err != nil {
		writeGraphQLError(w, http.StatusOK, err.Error(), "BAD_USER_INPUT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{op: result}})
}

func writeGraphQLError(w http.ResponseWriter, code int, msg, ext string) {
	writeJSON(w, code, map[string]any{
		"data":   nil,
		"errors": []gqlError{{Message: msg, Extensions: map[string]any{"code": ext}}},
	})
}

func (s *Server) createUser(p principal, in gjson.Result) (any, error) {
	if !strings.HasSuffix(p.role, "SYSTEM_ADMIN") {
		return nil, fmt.Errorf("role %s may not create users", p.role)
	}
	username := in.Get("username").String()
	role := in.Get("role").String()
	if username == "" || role == "" {
		return nil, fmt.Errorf("username and role are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Generated names collide; the platform appends a counter.
	base, n := username, 1
	for s.users[username] != nil {
		username = fmt.Sprintf("%s%d", base, n)
		n++
	}
	u := &user{
		id:       uuid.NewString(),
		username: username,
		password: s.cfg.DefaultPassword,
		role:     role,
		office:   in.Get("primaryOffice").String(),
	}
	s.users[u.username] = u
	s.usersID[u.id] = u
	return map[string]string{"username": u.username, "id": u.id}, nil
}

func (s *Server) activateUser(p principal, vars gjson.Result) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersID[vars.Get("userId").String()]
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}
	if u.id != p.id {
		return nil, fmt.Errorf("users can only activate themselves")
	}
	u.active = true
	u.password = vars.Get("password").String()
	return u.id, nil
}

func canDeclare(role string) bool {
	switch role {
	case "FIELD_AGENT", "REGISTRATION_AGENT", "LOCAL_REGISTRAR":
		return true
	}
	return false
}

func (s *Server) declare(p principal, op string, details gjson.Result) (any, error) {
	if !canDeclare(p.role) {
		return nil, fmt.Errorf("role %s may not declare", p.role)
	}
	if !details.IsObject() {
		return nil, fmt.Errorf("details are required")
	}
	createdAt := details.Get("createdAt").String()
	if _, err := time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt %q", createdAt)
	}

	kind := "birth"
	if op == "createDeathRegistration" {
		kind = "death"
	}
	rec := s.store(kind, details.Value().(map[string]any), createdAt, StatusDeclared)
	out := map[string]any{"compositionId": rec.id}
	if kind == "death" {
		out["trackingId"] = rec.trackingID
	}
	return out, nil
}

func (s *Server) store(kind string, details map[string]any, createdAt, initial string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &record{
		id:         uuid.NewString(),
		kind:       kind,
		trackingID: strings.ToUpper(kind[:1]) + strings.ToUpper(uuid.NewString()[:6]),
		statuses:   []status{{Type: initial, Timestamp: createdAt}},
		details:    details,
	}
	s.records[rec.id] = rec
	return rec
}

// fetch renders a stored record the way the gateway returns it: the submitted
// details plus platform-assigned ids and the status history.
func (s *Server) fetch(id string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	if rec == nil {
		return nil, fmt.Errorf("record %s not found", id)
	}
	raw, _ := json.Marshal(rec.details)
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)

	doc["id"] = rec.id
	doc["_fhirIDMap"] = map[string]any{"composition": rec.id, "eventLocation": "loc-" + rec.id}
	for _, section := range []string{"child", "mother", "father", "deceased", "informant"} {
		if m, ok := doc[section].(map[string]any); ok {
			m["id"] = section + "-" + rec.id
		}
	}
	reg, _ := doc["registration"].(map[string]any)
	if reg == nil {
		reg = map[string]any{}
		doc["registration"] = reg
	}
	reg["id"] = "task-" + rec.id
	reg["trackingId"] = rec.trackingID
	if rec.registrationNumber != "" {
		reg["registrationNumber"] = rec.registrationNumber
	}
	reg["status"] = rec.statuses
	return doc, nil
}

func (s *Server) transition(p principal, vars gjson.Result, to string, certify bool) (any, error) {
	if p.role != "LOCAL_REGISTRAR" {
		return nil, fmt.Errorf("role %s may not register or certify", p.role)
	}
	id := vars.Get("id").String()
	details := vars.Get("details")
	if err := checkNoNulls(details); err != nil {
		return nil, err
	}
	createdAt := details.Get("createdAt").String()
	if _, err := time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt %q", createdAt)
	}
	if certify {
		data := details.Get("registration.certificates.0.data").String()
		if !strings.HasPrefix(data, "data:application/pdf;base64,") {
			return nil, fmt.Errorf("certificate has no signature document")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	if rec == nil {
		return nil, fmt.Errorf("record %s not found", id)
	}
	current := rec.statuses[len(rec.statuses)-1].Type
	switch {
	case to == StatusRegistered && current != StatusDeclared && current != StatusInProgress:
		return nil, fmt.Errorf("record %s is %s, cannot register", id, current)
	case to == StatusCertified && current != StatusRegistered:
		return nil, fmt.Errorf("record %s is %s, cannot certify", id, current)
	}
	rec.statuses = append(rec.statuses, status{Type: to, Timestamp: createdAt})
	if to == StatusRegistered {
		rec.registrationNumber = fmt.Sprintf("%s%d", strings.ToUpper(rec.kind[:1]), len(s.records)*1000+len(rec.statuses))
		return map[string]string{"id": rec.id}, nil
	}
	return rec.id, nil
}

// checkNoNulls rejects explicit nulls anywhere in the input, as the
// platform's input types do.
func checkNoNulls(v gjson.Result) error {
	var err error
	var walk func(path string, v gjson.Result)
	walk = func(path string, v gjson.Result) {
		if err != nil {
			return
		}
		if v.Type == gjson.Null {
			err = fmt.Errorf("null value at %s", path)
			return
		}
		if v.IsObject() || v.IsArray() {
			v.ForEach(func(k, child gjson.Result) bool {
				walk(path+"."+k.String(), child)
				return err == nil
			})
		}
	}
	walk("details", v)
	return err
}
