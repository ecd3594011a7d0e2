// Package config holds process configuration for the pipeline and web
// commands. A Config is built once at startup and passed explicitly; no
// stage reads ambient globals.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// Addr configures the HTTP listen address for the serve command.
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// HTTPTimeoutSeconds bounds each scrape request.
	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`

	// Source endpoints, overridable for mirrors and tests.
	NSTBaseURL    string `koanf:"nst_base_url"`
	NHLBaseURL    string `koanf:"nhl_base_url"`
	EloLatestURL  string `koanf:"elo_latest_url"`
	EloHistoryURL string `koanf:"elo_history_url"`

	// CronSchedule drives the daemon command's daily run.
	CronSchedule string `koanf:"cron_schedule"`

	// RunDate overrides "today" (YYYY-MM-DD); empty means the wall clock.
	// Used to rerun a past pipeline day.
	RunDate string `koanf:"run_date"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		HTTPTimeoutSeconds: 60,
		CronSchedule:       "0 12 * * *",
	}
}

// Today resolves the run date: the RunDate override when set, otherwise the
// current UTC date.
func (c *Config) Today() (time.Time, error) {
	if c.RunDate == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.RunDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing run_date %q: %w", c.RunDate, err)
	}
	return t, nil
}

// HTTPTimeout returns the scrape timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
