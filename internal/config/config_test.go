package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Pool.FieldAgents != 10 || cfg.Pool.Hospitals != 1 || cfg.Pool.Registrars != 1 {
		t.Errorf("unexpected default pool %+v", cfg.Pool)
	}
	if cfg.Run.RefreshLead != time.Minute {
		t.Errorf("expected 60s refresh lead, got %v", cfg.Run.RefreshLead)
	}

	var total float64
	for _, b := range cfg.CompletionBrackets {
		total += b.Weight
	}
	if total < 0.999 || total > 1.001 {
		t.Errorf("default bracket weights should sum to 1, got %v", total)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	content := `
platform:
  gatewayURL: "http://gateway:7070/graphql"
run:
  startYear: 2019
  endYear: 2020
  concurrency: 8
  rps: 25
  seed: 1234
  locations: ["district-a", "district-b"]
  refreshLead: 30s
pool:
  fieldAgents: 3
`
	cfg := loadConfigFromString(t, content)

	if cfg.Platform.GatewayURL != "http://gateway:7070/graphql" {
		t.Errorf("expected gatewayURL override, got %q", cfg.Platform.GatewayURL)
	}
	if cfg.Platform.AuthURL != "http://localhost:4040" {
		t.Errorf("unset authURL should keep the default, got %q", cfg.Platform.AuthURL)
	}
	if cfg.Run.StartYear != 2019 || cfg.Run.EndYear != 2020 {
		t.Errorf("expected years 2019-2020, got %d-%d", cfg.Run.StartYear, cfg.Run.EndYear)
	}
	if cfg.Run.Concurrency != 8 || cfg.Run.RPS != 25 || cfg.Run.Seed != 1234 {
		t.Errorf("unexpected run config %+v", cfg.Run)
	}
	if len(cfg.Run.Locations) != 2 {
		t.Errorf("expected 2 locations, got %v", cfg.Run.Locations)
	}
	if cfg.Run.RefreshLead != 30*time.Second {
		t.Errorf("expected refreshLead 30s, got %v", cfg.Run.RefreshLead)
	}
	if cfg.Pool.FieldAgents != 3 || cfg.Pool.Registrars != 1 {
		t.Errorf("unexpected pool %+v", cfg.Pool)
	}
}

func TestLoadConfig_Brackets(t *testing.T) {
	content := `
completionBrackets:
  - {min: 0, max: 10, weight: 0.5}
  - {min: 11, max: 20, weight: 0.5}
`
	cfg := loadConfigFromString(t, content)

	if len(cfg.CompletionBrackets) != 2 {
		t.Fatalf("expected brackets to be replaced, got %d", len(cfg.CompletionBrackets))
	}
	if cfg.CompletionBrackets[1].Min != 11 || cfg.CompletionBrackets[1].Max != 20 {
		t.Errorf("unexpected bracket %+v", cfg.CompletionBrackets[1])
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpFile := createTempFile(t, "run: [unclosed")

	_, err := LoadConfig(tmpFile)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no registrars", func(c *Config) { c.Pool.Registrars = 0 }, "registrar"},
		{"no death declarers", func(c *Config) { c.Pool.FieldAgents, c.Pool.RegistrationAgents = 0, 0 }, "declare deaths"},
		{"inverted years", func(c *Config) { c.Run.StartYear, c.Run.EndYear = 2022, 2020 }, "year range"},
		{"zero concurrency", func(c *Config) { c.Run.Concurrency = 0 }, "concurrency"},
		{"negative rps", func(c *Config) { c.Run.RPS = -1 }, "rps"},
		{"sqlite without path", func(c *Config) { c.Statistics.Source = "sqlite" }, "path is required"},
		{"unknown source", func(c *Config) { c.Statistics.Source = "csv" }, "unknown source"},
		{"empty brackets", func(c *Config) { c.CompletionBrackets = nil }, "at least one bracket"},
		{"bad bracket", func(c *Config) { c.CompletionBrackets[0].Max = -1 }, "completionBrackets[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	tmpFile := createTempFile(t, content)
	defer os.Remove(tmpFile)

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return tmpFile
}
