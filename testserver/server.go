// Package testserver is an in-memory fake of the registration platform: the
// auth service, the GraphQL gateway, user management and the country
// configuration endpoints, all served from one router.
package testserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Config controls the fake's behaviour.
type Config struct {
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// RequireVerification makes /authenticate answer with a nonce that must
	// be exchanged at /verifyCode.
	RequireVerification bool
	VerificationCode    string
	SigningKey          []byte
	AdminUsername       string
	AdminPassword       string
	// DefaultPassword is the password of every created user.
	DefaultPassword string
	CrudeDeathRate  float64
	Locations       []Location
	Facilities      []Facility
	// Statistics is served verbatim at /statistics. Nil answers 404.
	Statistics json.RawMessage
	// Now is the server's clock, used for token issue and expiry checks.
	Now func() time.Time
}

// DefaultConfig returns a single-district country with one CRVS office and
// one health facility.
func DefaultConfig() Config {
	return Config{
		TokenTTL:         10 * time.Minute,
		VerificationCode: "000000",
		SigningKey:       []byte("fake-platform-signing-key"),
		AdminUsername:    "emmanuel.mayuka",
		AdminPassword:    "test",
		DefaultPassword:  "test",
		CrudeDeathRate:   7,
		Locations: []Location{
			{ID: "state-1", Name: "Central", JurisdictionType: "STATE", Type: "ADMIN_STRUCTURE", PartOf: "Location/0"},
			{ID: "district-1", Name: "Ibombo", JurisdictionType: "DISTRICT", Type: "ADMIN_STRUCTURE", PartOf: "Location/state-1"},
		},
		Facilities: []Facility{
			{ID: "office-1", Name: "Ibombo District Office", Type: "CRVS_OFFICE", PartOf: "Location/district-1"},
			{ID: "hf-1", Name: "Ibombo Rural Health Centre", Type: "HEALTH_FACILITY", PartOf: "Location/district-1"},
		},
		Statistics: json.RawMessage(`[{"id":"district-1","statistics":{
			"http://opencrvs.org/specs/id/statistics-total-populations":{"2021":36500,"2022":36500},
			"http://opencrvs.org/specs/id/statistics-male-populations":{"2021":18000,"2022":18000},
			"http://opencrvs.org/specs/id/statistics-female-populations":{"2021":18500,"2022":18500},
			"http://opencrvs.org/specs/id/statistics-crude-birth-rates":{"2021":10,"2022":10}}}]`),
		Now: time.Now,
	}
}

// Location is an administrative area served at /locations.
type Location struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Alias            string `json:"alias"`
	PhysicalType     string `json:"physicalType"`
	JurisdictionType string `json:"jurisdictionType"`
	Type             string `json:"type"`
	PartOf           string `json:"partOf"`
}

// Facility is an office or health facility served at /facilities.
type Facility struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Alias        string `json:"alias"`
	Address      string `json:"address"`
	PhysicalType string `json:"physicalType"`
	Type         string `json:"type"`
	PartOf       string `json:"partOf"`
}

type user struct {
	id       string
	username string
	password string
	role     string
	office   string
	active   bool
}

type systemClient struct {
	id     string
	secret string
	scope  string
	office string
}

// Server is the fake platform. All state is in memory and guarded by mu.
type Server struct {
	cfg    Config
	router chi.Router

	mu       sync.Mutex
	users    map[string]*user // by username
	usersID  map[string]*user
	clients  map[string]*systemClient
	nonces   map[string]string // nonce -> username
	records  map[string]*record
	failures map[string]int
	calls    map[string]int
	issued   int
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		users:    map[string]*user{},
		usersID:  map[string]*user{},
		clients:  map[string]*systemClient{},
		nonces:   map[string]string{},
		records:  map[string]*record{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
	admin := &user{
		id:       uuid.NewString(),
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
		role:     "NATIONAL_SYSTEM_ADMIN",
		active:   true,
	}
	s.users[admin.username] = admin
	s.usersID[admin.id] = admin
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerHandlers() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)

	// auth service
	r.Post("/authenticate", s.handleAuthenticate)
	r.Post("/verifyCode", s.handleVerifyCode)
	r.Post("/authenticateSystemClient", s.handleAuthenticateSystemClient)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/graphql", s.handleGraphQL)
		r.Post("/registerSystemClient", s.handleRegisterSystemClient)
		r.Get("/locations", s.handleLocations)
		r.Get("/facilities", s.handleFacilities)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/crude-death-rate", s.handleCrudeDeathRate)
		r.Post("/dhis2-notification/birth", s.handleBirthNotification)
	})
	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FailNext makes the next n calls of op answer with a GraphQL error. op is a
// GraphQL root field name or "birthNotification".
func (s *Server) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] += n
}

// Calls returns how many times op was invoked.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TokensIssued returns the number of tokens handed out so far.
func (s *Server) TokensIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Users returns the usernames of created users with role.
func (s *Server) Users(role string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, u := range s.users {
		if u.role == role {
			out = append(out, u.username)
		}
	}
	return out
}

// shouldFail records a call of op and consumes one injected failure.
func (s *Server) shouldFail(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.failures[op] > 0 {
		s.failures[op]--
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
