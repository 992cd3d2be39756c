// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/court-agent/internal/types"
)

// Config is the application configuration loadable from a JSON file. All
// fields are optional; missing values use defaults or environment variables.
type Config struct {
	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL (DATABASE_URL env overrides)

	// Identity submitted on the portal's contact form
	Contact types.Contact `json:"contact"`

	// Verification mail filters
	VerificationSender  string `json:"verification_sender,omitempty"`  // expected From address
	VerificationSubject string `json:"verification_subject,omitempty"` // expected Subject substring
	GmailCredentials    string `json:"gmail_credentials,omitempty"`    // path to Gmail API credentials file

	// Timing (seconds)
	PageLoadTimeoutSec int `json:"page_load_timeout_sec,omitempty"` // browser page-load wait (default 15)
	VerifyDeadlineSec  int `json:"verify_deadline_sec,omitempty"`   // verification wait deadline (default 300)
	PollIntervalSec    int `json:"poll_interval_sec,omitempty"`     // mailbox poll interval (default 10)
	TickIntervalSec    int `json:"tick_interval_sec,omitempty"`     // trigger loop tick (default 60)
	GraceWindowSec     int `json:"grace_window_sec,omitempty"`      // catch-up window past a missed trigger (default 0 = exact minute)

	// Behavior
	Headless *bool `json:"headless,omitempty"` // run the browser headless (default true)
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

// Validate checks that the configuration has valid values. Required fields
// are checked after env merging, not here.
func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"page_load_timeout_sec": c.PageLoadTimeoutSec,
		"verify_deadline_sec":   c.VerifyDeadlineSec,
		"poll_interval_sec":     c.PollIntervalSec,
		"tick_interval_sec":     c.TickIntervalSec,
		"grace_window_sec":      c.GraceWindowSec,
	} {
		if v < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}

	if c.Contact != (types.Contact{}) {
		if err := c.Contact.Validate(); err != nil {
			return fmt.Errorf("config error: invalid contact: %w", err)
		}
	}

	if c.GmailCredentials != "" {
		if _, err := os.Stat(c.GmailCredentials); os.IsNotExist(err) {
			return fmt.Errorf("config error: gmail credentials file not found: %s", c.GmailCredentials)
		}
	}

	return nil
}

// ApplyEnv fills unset fields from the environment.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.GmailCredentials == "" {
		c.GmailCredentials = os.Getenv("GMAIL_CREDENTIALS")
	}
}

// Duration accessors with defaults.

// PageLoadTimeout returns the browser page-load wait.
func (c *Config) PageLoadTimeout() time.Duration {
	return secondsOr(c.PageLoadTimeoutSec, 15*time.Second)
}

// VerifyDeadline returns the verification wait deadline.
func (c *Config) VerifyDeadline() time.Duration {
	return secondsOr(c.VerifyDeadlineSec, 5*time.Minute)
}

// PollInterval returns the mailbox poll interval.
func (c *Config) PollInterval() time.Duration {
	return secondsOr(c.PollIntervalSec, 10*time.Second)
}

// TickInterval returns the trigger loop tick interval.
func (c *Config) TickInterval() time.Duration {
	return secondsOr(c.TickIntervalSec, time.Minute)
}

// GraceWindow returns the catch-up window; zero keeps exact-minute firing.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.GraceWindowSec) * time.Second
}

// HeadlessBrowser reports whether the browser should run headless.
func (c *Config) HeadlessBrowser() bool {
	if c.Headless == nil {
		return true
	}
	return *c.Headless
}

func secondsOr(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}
