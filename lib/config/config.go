// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Parley.
type Config struct {
	// Homeserver configures the connection to the Matrix homeserver.
	Homeserver HomeserverConfig `yaml:"homeserver"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Sync configures the long-poll sync loop.
	Sync SyncConfig `yaml:"sync"`

	// Timeline configures timeline presentation and mutation behavior.
	Timeline TimelineConfig `yaml:"timeline"`
}

// HomeserverConfig configures the connection to the Matrix homeserver.
type HomeserverConfig struct {
	// URL is the base URL of the homeserver, e.g. https://matrix.example.org.
	URL string `yaml:"url"`

	// UserID is the full Matrix user ID to log in as, e.g. @alice:example.org.
	UserID string `yaml:"user_id"`

	// DeviceName is the display name registered for the login device.
	// Default: "parley"
	DeviceName string `yaml:"device_name"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// State is where the persisted session (device ID, sync position,
	// room pagination tokens) is stored.
	// Default: ${HOME}/.local/state/parley
	State string `yaml:"state"`
}

// SyncConfig configures the long-poll sync loop.
type SyncConfig struct {
	// TimeoutMilliseconds is the long-poll timeout passed to /sync.
	// Default: 30000
	TimeoutMilliseconds int `yaml:"timeout_ms"`

	// FilterFile is the path to a JSONC sync filter definition. Empty
	// means no filter is sent.
	FilterFile string `yaml:"filter_file"`
}

// TimelineConfig configures timeline presentation and mutation behavior.
type TimelineConfig struct {
	// LocalEcho shows sent messages immediately as dimmed echo lines,
	// replaced in place once the server confirms them.
	// Default: true
	LocalEcho bool `yaml:"local_echo"`

	// RedactionStyle controls how redacted messages are shown:
	// "delete" removes the line body, "notice" replaces it with a
	// placeholder, "strikethrough" overstrikes the original text.
	// Default: strikethrough
	RedactionStyle string `yaml:"redaction_style"`

	// MarkdownInput enables markdown rendering of outgoing messages
	// into formatted bodies.
	// Default: true
	MarkdownInput bool `yaml:"markdown_input"`

	// TypingNotices enables sending typing notifications while the
	// user composes a message.
	// Default: true
	TypingNotices bool `yaml:"typing_notices"`

	// InitialBackfill is the number of historical events fetched per
	// pagination request.
	// Default: 30
	InitialBackfill int `yaml:"initial_backfill"`
}

// Default returns the default configuration. These defaults are used as
// a base before loading the config file. They exist to ensure all
// fields have sensible zero-values, not as a fallback: the config file
// is required and must name the homeserver.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Homeserver: HomeserverConfig{
			DeviceName: "parley",
		},
		Paths: PathsConfig{
			State: filepath.Join(homeDir, ".local", "state", "parley"),
		},
		Sync: SyncConfig{
			TimeoutMilliseconds: 30000,
		},
		Timeline: TimelineConfig{
			LocalEcho:       true,
			RedactionStyle:  "strikethrough",
			MarkdownInput:   true,
			TypingNotices:   true,
			InitialBackfill: 30,
		},
	}
}

// Load loads configuration from the PARLEY_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or discovery: if PARLEY_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PARLEY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PARLEY_CONFIG environment variable not set; " +
			"set it to the path of your parley.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"PARLEY_STATE": c.Paths.State,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["PARLEY_STATE"] = c.Paths.State // Update for dependent paths.

	c.Sync.FilterFile = expandVars(c.Sync.FilterFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// redactionStyles are the accepted timeline.redaction_style values.
var redactionStyles = []string{"delete", "notice", "strikethrough"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	}
	if c.Homeserver.UserID == "" {
		errs = append(errs, fmt.Errorf("homeserver.user_id is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}
	if c.Sync.TimeoutMilliseconds <= 0 {
		errs = append(errs, fmt.Errorf("sync.timeout_ms must be positive"))
	}
	if !contains(redactionStyles, c.Timeline.RedactionStyle) {
		errs = append(errs, fmt.Errorf("timeline.redaction_style must be one of: %v", redactionStyles))
	}
	if c.Timeline.InitialBackfill <= 0 {
		errs = append(errs, fmt.Errorf("timeline.initial_backfill must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the state directory if it does not exist.
func (c *Config) EnsurePaths() error {
	if c.Paths.State == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.State, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.State, err)
	}
	return nil
}

// LoadSyncFilter reads the JSONC sync filter file and returns it as
// compact JSON suitable for the filter query parameter of /sync.
// Returns "" when no filter file is configured.
func (c *Config) LoadSyncFilter() (string, error) {
	if c.Sync.FilterFile == "" {
		return "", nil
	}

	data, err := os.ReadFile(c.Sync.FilterFile)
	if err != nil {
		return "", fmt.Errorf("config: reading sync filter: %w", err)
	}

	plain := jsonc.ToJSON(data)
	if !json.Valid(plain) {
		return "", fmt.Errorf("config: sync filter %s is not valid JSON", c.Sync.FilterFile)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, plain); err != nil {
		return "", fmt.Errorf("config: sync filter %s: %w", c.Sync.FilterFile, err)
	}
	return compact.String(), nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
