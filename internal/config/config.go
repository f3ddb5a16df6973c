// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jobgeo/internal/db"
	"github.com/jonathan/jobgeo/internal/platsbanken"
)

// Environment variables consulted by FromEnv.
const (
	EnvDatabaseURL = "PG_DATABASE_URL"
	EnvSchema      = "JOBGEO_SCHEMA"
	EnvTable       = "JOBGEO_TABLE"
	EnvLogMode     = "JOBGEO_LOG_MODE"
	EnvBaseURL     = "JOBGEO_API_BASE_URL"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Store
	DatabaseURL string `json:"database_url,omitempty"`
	Schema      string `json:"schema,omitempty" validate:"omitempty,max=63"`
	Table       string `json:"table,omitempty" validate:"omitempty,max=63"`

	// Remote API
	BaseURL         string `json:"base_url,omitempty" validate:"omitempty,url"`
	UserAgent       string `json:"user_agent,omitempty"`
	OccupationField string `json:"occupation_field,omitempty"`
	PayloadFile     string `json:"payload_file,omitempty"`
	PageSize        int    `json:"page_size,omitempty" validate:"min=0,max=100"`
	Pages           int    `json:"pages,omitempty" validate:"min=0"`
	RecordCap       int    `json:"record_cap,omitempty" validate:"min=0"`
	Concurrency     int    `json:"concurrency,omitempty" validate:"min=0,max=32"`
	Sleep           string `json:"sleep,omitempty"`                           // minimum interval between requests, e.g. "500ms"
	Timeout         string `json:"timeout,omitempty"`                         // per-request HTTP timeout
	Retries         int    `json:"retries,omitempty" validate:"min=0,max=10"` // attempts per request, including the first

	// Output
	LogMode         string `json:"log_mode,omitempty" validate:"omitempty,oneof=dev prod"`
	SummaryOut      string `json:"summary_out,omitempty"`
	MetricsTextfile string `json:"metrics_textfile,omitempty"`
}

// Defaults returns the built-in configuration. Remote API values come from the
// platsbanken package so the CLI and the client agree.
func Defaults() Config {
	fetch := platsbanken.DefaultFetchOptions()
	return Config{
		Schema:      db.DefaultSchema,
		Table:       db.DefaultTable,
		BaseURL:     platsbanken.DefaultBaseURL,
		UserAgent:   platsbanken.DefaultUserAgent,
		PageSize:    fetch.PageSize,
		Pages:       fetch.PageCap,
		RecordCap:   fetch.RecordCap,
		Concurrency: fetch.Concurrency,
		Sleep:       platsbanken.DefaultMinInterval.String(),
		Timeout:     platsbanken.DefaultTimeout.String(),
		Retries:     platsbanken.DefaultRetryPolicy().MaxAttempts,
		LogMode:     "prod",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config holding only the values set in the environment.
func FromEnv() Config {
	return Config{
		DatabaseURL: strings.TrimSpace(os.Getenv(EnvDatabaseURL)),
		Schema:      strings.TrimSpace(os.Getenv(EnvSchema)),
		Table:       strings.TrimSpace(os.Getenv(EnvTable)),
		LogMode:     strings.TrimSpace(os.Getenv(EnvLogMode)),
		BaseURL:     strings.TrimSpace(os.Getenv(EnvBaseURL)),
	}
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	for name, value := range map[string]string{"sleep": c.Sleep, "timeout": c.Timeout} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config error: '%s' is not a duration: %q", name, value)
		}
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}

	if c.PayloadFile != "" {
		if _, err := os.Stat(c.PayloadFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: payload file not found: %s", c.PayloadFile)
		}
	}

	return nil
}

// SleepDuration parses Sleep. Validate has already rejected bad values.
func (c *Config) SleepDuration() time.Duration {
	d, _ := time.ParseDuration(c.Sleep)
	return d
}

// TimeoutDuration parses Timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Schema == "" {
		result.Schema = defaults.Schema
	}
	if result.Table == "" {
		result.Table = defaults.Table
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.OccupationField == "" {
		result.OccupationField = defaults.OccupationField
	}
	if result.PayloadFile == "" {
		result.PayloadFile = defaults.PayloadFile
	}
	if result.Sleep == "" {
		result.Sleep = defaults.Sleep
	}
	if result.Timeout == "" {
		result.Timeout = defaults.Timeout
	}
	if result.LogMode == "" {
		result.LogMode = defaults.LogMode
	}
	if result.SummaryOut == "" {
		result.SummaryOut = defaults.SummaryOut
	}
	if result.MetricsTextfile == "" {
		result.MetricsTextfile = defaults.MetricsTextfile
	}

	// Int fields: use default if zero. RecordCap 0 means "no cap", so a
	// default only applies when one is configured.
	if result.PageSize == 0 {
		result.PageSize = defaults.PageSize
	}
	if result.Pages == 0 {
		result.Pages = defaults.Pages
	}
	if result.RecordCap == 0 {
		result.RecordCap = defaults.RecordCap
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.Retries == 0 {
		result.Retries = defaults.Retries
	}

	return result
}

// Resolve layers the sources in precedence order, highest first, and fills the
// rest from Defaults.
func Resolve(layers ...Config) Config {
	out := Config{}
	for _, l := range layers {
		out = out.MergeWithDefaults(l)
	}
	return out.MergeWithDefaults(Defaults())
}
