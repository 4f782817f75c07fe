// Package config loads and validates the YAML configuration at startup.
// Fail-fast: an invalid document is rejected before any fetch begins.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobradar/internal/model"
)

// Config is the root configuration for the jobradar pipeline.
type Config struct {
	Sources      []SourceConfig
	Query        QueryConfig
	Scoring      ScoringConfig
	Pipeline     PipelineConfig
	Store        StoreConfig
	Notification NotificationConfig
	CronSpec     string // schedule for `start`, e.g. "@every 6h"
}

// SourceConfig describes a single board to fetch from.
type SourceConfig struct {
	Name       string  `yaml:"name"`
	Kind       string  `yaml:"kind"` // greenhouse, lever, ashby, jsonld, html, rss
	BoardToken string  `yaml:"board_token"`
	URL        string  `yaml:"url"`
	Enabled    bool    `yaml:"enabled"`
	RPS        float64 `yaml:"rps"`   // per-source rate override, 0 = default
	Burst      int     `yaml:"burst"` // token bucket burst override, 0 = default
}

// QueryConfig is the search every run executes.
type QueryConfig struct {
	Keywords  []string `yaml:"keywords"`
	Locations []string `yaml:"locations"`
}

// LocationPrefs holds the remote/hybrid/onsite preference flags.
type LocationPrefs struct {
	AllowRemote bool
	AllowHybrid bool
	AllowOnsite bool
}

// FactorWeights are the scoring factor weights. They are normalized by their
// sum at scoring time, so overrides do not have to add up to 1.
type FactorWeights struct {
	Title    float64
	Salary   float64
	Location float64
	Company  float64
	Recency  float64
}

// Sum returns the total weight mass.
func (w FactorWeights) Sum() float64 {
	return w.Title + w.Salary + w.Location + w.Company + w.Recency
}

// ScoringConfig is the user's stated preferences. The pipeline reads it,
// never mutates it.
type ScoringConfig struct {
	TitleAllowlist  []string
	TitleBlocklist  []string
	KeywordsBoost   []string
	KeywordsExclude []string
	Location        LocationPrefs
	SalaryFloor     float64
	RecencyWindowDays int
	CompanyAllowlist []string
	CompanyBlocklist []string

	// UnknownSalaryCredit is the salary-factor credit (0..1) granted when a
	// posting lists no salary at all. Default 1.0: an unlisted salary is not
	// treated as below the floor. Explicitly-below-floor salaries always
	// score zero for the factor.
	UnknownSalaryCredit float64

	AlertThreshold float64
	Weights        FactorWeights
}

// PipelineConfig tunes the fetch orchestrator and run behavior.
type PipelineConfig struct {
	Workers          int
	CallTimeout      time.Duration
	RunDeadline      time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	RateRPS          float64
	RateBurst        int
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // "sqlite" (default), "postgres", "nop"
	Path        string `yaml:"path"`    // sqlite file path
	DatabaseURL string `yaml:"database_url"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as
// strings). Unknown keys are ignored by the decoder.
type rawConfig struct {
	Sources      []SourceConfig     `yaml:"sources"`
	Query        QueryConfig        `yaml:"query"`
	Scoring      rawScoringConfig   `yaml:"scoring"`
	Pipeline     rawPipelineConfig  `yaml:"pipeline"`
	Store        StoreConfig        `yaml:"store"`
	Notification NotificationConfig `yaml:"notification"`
	CronSpec     string             `yaml:"cron_spec"`
}

type rawScoringConfig struct {
	TitleAllowlist  []string `yaml:"title_allowlist"`
	TitleBlocklist  []string `yaml:"title_blocklist"`
	KeywordsBoost   []string `yaml:"keywords_boost"`
	KeywordsExclude []string `yaml:"keywords_exclude"`
	LocationPreferences *struct {
		AllowRemote bool `yaml:"allow_remote"`
		AllowHybrid bool `yaml:"allow_hybrid"`
		AllowOnsite bool `yaml:"allow_onsite"`
	} `yaml:"location_preferences"`
	SalaryFloor         float64  `yaml:"salary_floor"`
	RecencyWindowDays   int      `yaml:"recency_window_days"`
	CompanyAllowlist    []string `yaml:"company_allowlist"`
	CompanyBlocklist    []string `yaml:"company_blocklist"`
	UnknownSalaryCredit *float64 `yaml:"unknown_salary_credit"`
	AlertThreshold      *float64 `yaml:"alert_threshold"`
	Weights             *struct {
		Title    float64 `yaml:"title"`
		Salary   float64 `yaml:"salary"`
		Location float64 `yaml:"location"`
		Company  float64 `yaml:"company"`
		Recency  float64 `yaml:"recency"`
	} `yaml:"weights"`
}

type rawPipelineConfig struct {
	Workers          int    `yaml:"workers"`
	CallTimeout      string `yaml:"call_timeout"`
	RunDeadline      string `yaml:"run_deadline"`
	MaxRetries       *int   `yaml:"max_retries"`
	RetryBaseDelay   string `yaml:"retry_base_delay"`
	BreakerThreshold int    `yaml:"breaker_threshold"`
	BreakerCooldown  string `yaml:"breaker_cooldown"`
	RateRPS          float64 `yaml:"rate_rps"`
	RateBurst        int     `yaml:"rate_burst"`
}

// DefaultWeights are the documented factor weights.
var DefaultWeights = FactorWeights{
	Title:    0.40,
	Salary:   0.25,
	Location: 0.20,
	Company:  0.10,
	Recency:  0.05,
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Validation failures are model.ConfigError values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML config document.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables (webhook URLs, database credentials).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, &model.ConfigError{Field: "yaml", Err: err}
	}

	cfg := &Config{
		Sources:      raw.Sources,
		Query:        raw.Query,
		Store:        raw.Store,
		Notification: raw.Notification,
		CronSpec:     raw.CronSpec,
	}

	scoring, err := cookScoring(raw.Scoring)
	if err != nil {
		return nil, err
	}
	cfg.Scoring = scoring

	pipeline, err := cookPipeline(raw.Pipeline)
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = pipeline

	if cfg.CronSpec == "" {
		cfg.CronSpec = "@every 6h"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "jobradar.db"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func cookScoring(raw rawScoringConfig) (ScoringConfig, error) {
	s := ScoringConfig{
		TitleAllowlist:    raw.TitleAllowlist,
		TitleBlocklist:    raw.TitleBlocklist,
		KeywordsBoost:     raw.KeywordsBoost,
		KeywordsExclude:   raw.KeywordsExclude,
		SalaryFloor:       raw.SalaryFloor,
		RecencyWindowDays: raw.RecencyWindowDays,
		CompanyAllowlist:  raw.CompanyAllowlist,
		CompanyBlocklist:  raw.CompanyBlocklist,
		// Documented defaults for missing keys.
		Location:            LocationPrefs{AllowRemote: true, AllowHybrid: true, AllowOnsite: true},
		UnknownSalaryCredit: 1.0,
		AlertThreshold:      0.75,
		Weights:             DefaultWeights,
	}

	if raw.LocationPreferences != nil {
		s.Location = LocationPrefs{
			AllowRemote: raw.LocationPreferences.AllowRemote,
			AllowHybrid: raw.LocationPreferences.AllowHybrid,
			AllowOnsite: raw.LocationPreferences.AllowOnsite,
		}
	}
	if s.RecencyWindowDays == 0 {
		s.RecencyWindowDays = 14
	}
	if raw.UnknownSalaryCredit != nil {
		s.UnknownSalaryCredit = *raw.UnknownSalaryCredit
	}
	if raw.AlertThreshold != nil {
		s.AlertThreshold = *raw.AlertThreshold
	}
	if raw.Weights != nil {
		s.Weights = FactorWeights{
			Title:    raw.Weights.Title,
			Salary:   raw.Weights.Salary,
			Location: raw.Weights.Location,
			Company:  raw.Weights.Company,
			Recency:  raw.Weights.Recency,
		}
	}

	return s, nil
}

func cookPipeline(raw rawPipelineConfig) (PipelineConfig, error) {
	p := PipelineConfig{
		Workers:          raw.Workers,
		MaxRetries:       2,
		BreakerThreshold: raw.BreakerThreshold,
		RateRPS:          raw.RateRPS,
		RateBurst:        raw.RateBurst,
		CallTimeout:      30 * time.Second,
		RunDeadline:      10 * time.Minute,
		RetryBaseDelay:   5 * time.Second,
		BreakerCooldown:  10 * time.Minute,
	}

	if p.Workers == 0 {
		p.Workers = 4
	}
	if raw.MaxRetries != nil {
		p.MaxRetries = *raw.MaxRetries
	}
	if p.BreakerThreshold == 0 {
		p.BreakerThreshold = 5
	}
	if p.RateRPS == 0 {
		p.RateRPS = 1.0
	}
	if p.RateBurst == 0 {
		p.RateBurst = 2
	}

	var err error
	if raw.CallTimeout != "" {
		if p.CallTimeout, err = time.ParseDuration(raw.CallTimeout); err != nil {
			return p, &model.ConfigError{Field: "pipeline.call_timeout", Err: err}
		}
	}
	if raw.RunDeadline != "" {
		if p.RunDeadline, err = time.ParseDuration(raw.RunDeadline); err != nil {
			return p, &model.ConfigError{Field: "pipeline.run_deadline", Err: err}
		}
	}
	if raw.RetryBaseDelay != "" {
		if p.RetryBaseDelay, err = time.ParseDuration(raw.RetryBaseDelay); err != nil {
			return p, &model.ConfigError{Field: "pipeline.retry_base_delay", Err: err}
		}
	}
	if raw.BreakerCooldown != "" {
		if p.BreakerCooldown, err = time.ParseDuration(raw.BreakerCooldown); err != nil {
			return p, &model.ConfigError{Field: "pipeline.breaker_cooldown", Err: err}
		}
	}

	return p, nil
}

var knownKinds = map[string]bool{
	"greenhouse": true,
	"lever":      true,
	"ashby":      true,
	"jsonld":     true,
	"html":       true,
	"rss":        true,
}

func validate(cfg *Config) error {
	enabled := 0
	for i, s := range cfg.Sources {
		if !s.Enabled {
			continue
		}
		enabled++
		field := fmt.Sprintf("sources[%d]", i)
		if s.Name == "" {
			return &model.ConfigError{Field: field + ".name", Err: fmt.Errorf("is required")}
		}
		if !knownKinds[s.Kind] {
			return &model.ConfigError{Field: field + ".kind", Err: fmt.Errorf("unknown kind %q", s.Kind)}
		}
		switch s.Kind {
		case "greenhouse", "lever", "ashby":
			if s.BoardToken == "" {
				return &model.ConfigError{Field: field + ".board_token", Err: fmt.Errorf("is required for kind %q", s.Kind)}
			}
		case "jsonld", "html", "rss":
			if s.URL == "" {
				return &model.ConfigError{Field: field + ".url", Err: fmt.Errorf("is required for kind %q", s.Kind)}
			}
		}
	}
	if enabled == 0 {
		return &model.ConfigError{Field: "sources", Err: fmt.Errorf("at least one source must be enabled")}
	}

	s := cfg.Scoring
	if s.SalaryFloor < 0 {
		return &model.ConfigError{Field: "scoring.salary_floor", Err: fmt.Errorf("must not be negative, got %v", s.SalaryFloor)}
	}
	if s.UnknownSalaryCredit < 0 || s.UnknownSalaryCredit > 1 {
		return &model.ConfigError{Field: "scoring.unknown_salary_credit", Err: fmt.Errorf("must be in [0,1], got %v", s.UnknownSalaryCredit)}
	}
	if s.AlertThreshold < 0 || s.AlertThreshold > 1 {
		return &model.ConfigError{Field: "scoring.alert_threshold", Err: fmt.Errorf("must be in [0,1], got %v", s.AlertThreshold)}
	}
	if s.RecencyWindowDays < 1 {
		return &model.ConfigError{Field: "scoring.recency_window_days", Err: fmt.Errorf("must be positive, got %d", s.RecencyWindowDays)}
	}
	w := s.Weights
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"title", w.Title}, {"salary", w.Salary}, {"location", w.Location},
		{"company", w.Company}, {"recency", w.Recency},
	} {
		if f.value < 0 {
			return &model.ConfigError{Field: "scoring.weights." + f.name, Err: fmt.Errorf("must not be negative, got %v", f.value)}
		}
	}
	if w.Sum() <= 0 {
		return &model.ConfigError{Field: "scoring.weights", Err: fmt.Errorf("must have positive total weight")}
	}

	p := cfg.Pipeline
	if p.Workers < 1 {
		return &model.ConfigError{Field: "pipeline.workers", Err: fmt.Errorf("must be positive, got %d", p.Workers)}
	}
	if p.MaxRetries < 0 {
		return &model.ConfigError{Field: "pipeline.max_retries", Err: fmt.Errorf("must not be negative, got %d", p.MaxRetries)}
	}
	if p.BreakerThreshold < 1 {
		return &model.ConfigError{Field: "pipeline.breaker_threshold", Err: fmt.Errorf("must be positive, got %d", p.BreakerThreshold)}
	}

	switch cfg.Store.Backend {
	case "sqlite", "nop":
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return &model.ConfigError{Field: "store.database_url", Err: fmt.Errorf("is required when backend is \"postgres\"")}
		}
	default:
		return &model.ConfigError{Field: "store.backend", Err: fmt.Errorf("unknown backend %q", cfg.Store.Backend)}
	}

	if cfg.Notification.Type == "slack" && cfg.Notification.WebhookURL == "" {
		return &model.ConfigError{Field: "notification.webhook_url", Err: fmt.Errorf("is required when type is \"slack\"")}
	}

	return nil
}
