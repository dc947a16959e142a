package testserver

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	data := make(map[string]Location, len(s.cfg.Locations))
	for _, l := range s.cfg.Locations {
		data[l.ID] = l
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	data := make(map[string]Facility, len(s.cfg.Facilities))
	for _, f := range s.cfg.Facilities {
		data[f.ID] = f
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Statistics == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "statistics not configured"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.cfg.Statistics)
}

func (s *Server) handleCrudeDeathRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"crudeDeathRate": s.cfg.CrudeDeathRate})
}

// handleBirthNotification accepts a hospital notification and stores it as an
// incomplete birth declaration.
func (s *Server) handleBirthNotification(w http.ResponseWriter, r *http.Request) {
	if s.shouldFail("birthNotification") {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "injected failure"})
		return
	}
	p := principalFrom(r.Context())
	if p.role != "SYSTEM_HEALTH" {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "health system client required"})
		return
	}
	body, _ := io.ReadAll(r.Body)
	n := gjson.ParseBytes(body)
	facility := n.Get("place_of_birth").String()
	known := false
	for _, f := range s.cfg.Facilities {
		if f.ID == facility && f.Type == "HEALTH_FACILITY" {
			known = true
		}
	}
	if !known || n.Get("date_birth").String() == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid notification"})
		return
	}

	details := map[string]any{
		"child": map[string]any{
			"name": []any{map[string]any{
				"use":        "en",
				"firstNames": n.Get("child.first_names").String(),
				"familyName": n.Get("child.last_name").String(),
			}},
			"gender":    n.Get("child.sex").String(),
			"birthDate": n.Get("date_birth").String(),
		},
		"mother": map[string]any{
			"name": []any{map[string]any{
				"use":        "en",
				"firstNames": n.Get("mother.first_names").String(),
				"familyName": n.Get("mother.last_name").String(),
			}},
			"birthDate": n.Get("mother.dob").String(),
		},
		"registration": map[string]any{
			"contact":            "MOTHER",
			"contactPhoneNumber": n.Get("phone_number").String(),
		},
		"eventLocation": map[string]any{"_fhirID": facility},
	}
	timestamp := s.cfg.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	rec := s.store("birth", details, timestamp, StatusInProgress)
	writeJSON(w, http.StatusOK, map[string]string{"compositionId": rec.id})
}
