// Package config resolves tlecat settings from defaults, a TOML file,
// TLECAT_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/star/tlecat/internal/chunk"
	"github.com/star/tlecat/internal/logging"
)

// Config holds CLI configuration for tlecat.
type Config struct {
	Regime string
	Start  string // YYYY-MM-DD
	End    string // YYYY-MM-DD, exclusive
	OutDir string

	SourceURL     string
	SourceFile    string
	CacheDir      string
	CacheMaxFiles int
	Workers       int
	Retries       int
	HTTPTimeout   time.Duration
	Lenient       bool

	LogLevel  string
	LogFormat string

	Addr           string
	RunCatalog     string
	Target         string // RFC3339 instant or YYYY-MM-DD
	StreamMaxPerIP int
	TrustProxy     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		OutDir:         ".",
		CacheMaxFiles:  64,
		Workers:        4,
		Retries:        3,
		HTTPTimeout:    60 * time.Second,
		LogLevel:       "info",
		LogFormat:      "json",
		Addr:           ":8080",
		StreamMaxPerIP: 10,
	}
}

// Validate checks the settings shared by every command and normalises them.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.StreamMaxPerIP <= 0 {
		return fmt.Errorf("stream-max-per-ip must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (want json or text)", c.LogFormat)
	}

	// Ensure no trailing slash
	c.SourceURL = strings.TrimRight(c.SourceURL, "/")
	return nil
}

// ValidateRun checks the settings a retrieval run needs.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Regime == "" {
		return fmt.Errorf("regime is required")
	}
	if _, _, err := c.Dates(); err != nil {
		return err
	}
	if c.SourceURL == "" && c.SourceFile == "" {
		return fmt.Errorf("one of source-url or source-file is required")
	}
	if c.SourceURL != "" && c.SourceFile != "" {
		return fmt.Errorf("source-url and source-file are mutually exclusive")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out-dir is required")
	}
	return nil
}

// Dates parses Start and End as calendar dates.
func (c *Config) Dates() (time.Time, time.Time, error) {
	if c.Start == "" || c.End == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}
	start, err := chunk.ParseDate(c.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := chunk.ParseDate(c.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end: %w", err)
	}
	return start, end, nil
}

// TargetTime parses Target as an RFC3339 instant or a calendar date at
// midnight UTC.
func (c *Config) TargetTime() (time.Time, error) {
	return ParseInstant(c.Target)
}

// ParseInstant accepts RFC3339 or YYYY-MM-DD.
func ParseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("target is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := chunk.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse target %q: want RFC3339 or %s", s, chunk.DateLayout)
	}
	return t, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int from a pointer so an explicit zero can be configured.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Zero is accepted; negative values are left for Validate to reject.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
