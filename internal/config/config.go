// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Platform           PlatformConfig   `yaml:"platform"`
	Admin              AdminConfig      `yaml:"admin"`
	Pool               PoolConfig       `yaml:"pool"`
	Run                RunConfig        `yaml:"run"`
	Statistics         StatisticsConfig `yaml:"statistics"`
	CompletionBrackets []BracketConfig  `yaml:"completionBrackets"`
	Metrics            MetricsConfig    `yaml:"metrics,omitempty"`
}

// PlatformConfig holds the base URLs of the services the generator drives.
type PlatformConfig struct {
	GatewayURL       string        `yaml:"gatewayURL"`       // GraphQL endpoint
	AuthURL          string        `yaml:"authURL"`          // /authenticate, /verifyCode, /authenticateSystemClient
	UserMgntURL      string        `yaml:"userMgntURL"`      // /registerSystemClient
	CountryConfigURL string        `yaml:"countryConfigURL"` // /locations, /facilities, /statistics, notifications
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
}

// AdminConfig identifies the demo system administrator used to create the actor pools.
type AdminConfig struct {
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	VerificationCode string `yaml:"verificationCode"`
	UserPassword     string `yaml:"userPassword"` // password set on every created user
}

// PoolConfig sets how many actors of each role are created per location.
type PoolConfig struct {
	FieldAgents        int `yaml:"fieldAgents"`
	Hospitals          int `yaml:"hospitals"`
	RegistrationAgents int `yaml:"registrationAgents"`
	Registrars         int `yaml:"registrars"`
}

// RunConfig controls what is generated and how hard the platform is pushed.
type RunConfig struct {
	StartYear      int           `yaml:"startYear"`
	EndYear        int           `yaml:"endYear"`
	Concurrency    int           `yaml:"concurrency"`
	RPS            int           `yaml:"rps"` // 0 = unlimited
	Seed           uint64        `yaml:"seed"`
	Locations      []string      `yaml:"locations,omitempty"` // empty = every district
	CrudeDeathRate float64       `yaml:"crudeDeathRate"`      // 0 = fetch from country config
	RefreshLead    time.Duration `yaml:"refreshLead"`
}

// StatisticsConfig selects where the demographic statistics table is loaded from.
type StatisticsConfig struct {
	Source string `yaml:"source"` // "http" or "sqlite"
	Path   string `yaml:"path"`
}

// BracketConfig is one weighted birth-to-declaration delay range, in days.
type BracketConfig struct {
	Min    int     `yaml:"min"`
	Max    int     `yaml:"max"`
	Weight float64 `yaml:"weight"`
}

// MetricsConfig controls the optional prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration the generator runs with when no file is given.
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			GatewayURL:       "http://localhost:7070/graphql",
			AuthURL:          "http://localhost:4040",
			UserMgntURL:      "http://localhost:3030",
			CountryConfigURL: "http://localhost:3040",
			RequestTimeout:   60 * time.Second,
		},
		Admin: AdminConfig{
			Username:         "emmanuel.mayuka",
			Password:         "test",
			VerificationCode: "000000",
			UserPassword:     "test",
		},
		Pool: PoolConfig{
			FieldAgents:        10,
			Hospitals:          1,
			RegistrationAgents: 1,
			Registrars:         1,
		},
		Run: RunConfig{
			StartYear:   2021,
			EndYear:     2022,
			Concurrency: 1,
			RefreshLead: 60 * time.Second,
		},
		Statistics: StatisticsConfig{Source: "http"},
		CompletionBrackets: []BracketConfig{
			{Min: 0, Max: 44, Weight: 0.3},
			{Min: 45, Max: 365, Weight: 0.3},
			{Min: 365, Max: 365 * 5, Weight: 0.2},
			{Min: 365 * 5, Max: 365 * 20, Weight: 0.2},
		},
	}
}

// LoadConfig reads and parses a YAML configuration file on top of Default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Platform.GatewayURL == "" || c.Platform.AuthURL == "" || c.Platform.CountryConfigURL == "" {
		errs = append(errs, errors.New("platform: gatewayURL, authURL and countryConfigURL are required"))
	}
	if c.Pool.Registrars < 1 {
		errs = append(errs, errors.New("pool: at least one registrar is required"))
	}
	if c.Pool.FieldAgents+c.Pool.RegistrationAgents < 1 {
		errs = append(errs, errors.New("pool: at least one field agent or registration agent is required to declare deaths"))
	}
	if c.Pool.FieldAgents < 0 || c.Pool.Hospitals < 0 || c.Pool.RegistrationAgents < 0 {
		errs = append(errs, errors.New("pool: role counts must not be negative"))
	}
	if c.Run.StartYear <= 0 || c.Run.EndYear < c.Run.StartYear {
		errs = append(errs, fmt.Errorf("run: invalid year range %d-%d", c.Run.StartYear, c.Run.EndYear))
	}
	if c.Run.Concurrency < 1 {
		errs = append(errs, errors.New("run: concurrency must be >= 1"))
	}
	if c.Run.RPS < 0 {
		errs = append(errs, errors.New("run: rps must be >= 0"))
	}
	if c.Run.RefreshLead < 0 {
		errs = append(errs, errors.New("run: refreshLead must be >= 0"))
	}
	switch c.Statistics.Source {
	case "http":
	case "sqlite":
		if c.Statistics.Path == "" {
			errs = append(errs, errors.New("statistics: path is required for the sqlite source"))
		}
	default:
		errs = append(errs, fmt.Errorf("statistics: unknown source %q", c.Statistics.Source))
	}
	if len(c.CompletionBrackets) == 0 {
		errs = append(errs, errors.New("completionBrackets: at least one bracket is required"))
	}
	for i, b := range c.CompletionBrackets {
		if b.Min < 0 || b.Max < b.Min || b.Weight < 0 {
			errs = append(errs, fmt.Errorf("completionBrackets[%d]: invalid range [%d,%d] weight %v", i, b.Min, b.Max, b.Weight))
		}
	}
	return errors.Join(errs...)
}
