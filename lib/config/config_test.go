// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeTempConfig(t, `
homeserver:
  url: https://matrix.example.org
  user_id: "@alice:example.org"
sync:
  timeout_ms: 15000
timeline:
  redaction_style: notice
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Homeserver.URL != "https://matrix.example.org" {
		t.Errorf("url = %q", cfg.Homeserver.URL)
	}
	if cfg.Homeserver.UserID != "@alice:example.org" {
		t.Errorf("user_id = %q", cfg.Homeserver.UserID)
	}
	if cfg.Sync.TimeoutMilliseconds != 15000 {
		t.Errorf("timeout_ms = %d", cfg.Sync.TimeoutMilliseconds)
	}
	if cfg.Timeline.RedactionStyle != "notice" {
		t.Errorf("redaction_style = %q", cfg.Timeline.RedactionStyle)
	}
	// Defaults survive when not overridden.
	if cfg.Homeserver.DeviceName != "parley" {
		t.Errorf("device_name = %q", cfg.Homeserver.DeviceName)
	}
	if cfg.Timeline.InitialBackfill != 30 {
		t.Errorf("initial_backfill = %d", cfg.Timeline.InitialBackfill)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RequiresEnvironment(t *testing.T) {
	t.Setenv("PARLEY_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when PARLEY_CONFIG is unset")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	path := writeTempConfig(t, `
homeserver:
  url: https://matrix.example.org
  user_id: "@alice:example.org"
paths:
  state: ${HOME}/.parley
sync:
  filter_file: ${PARLEY_STATE}/filter.jsonc
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.State != "/home/alice/.parley" {
		t.Errorf("state = %q", cfg.Paths.State)
	}
	if cfg.Sync.FilterFile != "/home/alice/.parley/filter.jsonc" {
		t.Errorf("filter_file = %q", cfg.Sync.FilterFile)
	}
}

func TestExpandVars_Default(t *testing.T) {
	got := expandVars("${UNSET_PARLEY_VAR:-/fallback}/x", map[string]string{})
	if got != "/fallback/x" {
		t.Errorf("got %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Homeserver.URL = "https://matrix.example.org"
	valid.Homeserver.UserID = "@alice:example.org"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing url", func(c *Config) { c.Homeserver.URL = "" }, "homeserver.url"},
		{"missing user", func(c *Config) { c.Homeserver.UserID = "" }, "homeserver.user_id"},
		{"bad redaction style", func(c *Config) { c.Timeline.RedactionStyle = "vanish" }, "redaction_style"},
		{"zero timeout", func(c *Config) { c.Sync.TimeoutMilliseconds = 0 }, "timeout_ms"},
		{"zero backfill", func(c *Config) { c.Timeline.InitialBackfill = 0 }, "initial_backfill"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Homeserver.URL = "https://matrix.example.org"
			cfg.Homeserver.UserID = "@alice:example.org"
			test.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %q", err, test.want)
			}
		})
	}
}

func TestLoadSyncFilter(t *testing.T) {
	directory := t.TempDir()
	filterPath := filepath.Join(directory, "filter.jsonc")
	content := `{
  // keep sync lean: limit the timeline chunk
  "room": {
    "timeline": {"limit": 50},
  },
}`
	if err := os.WriteFile(filterPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing filter: %v", err)
	}

	cfg := Default()
	cfg.Sync.FilterFile = filterPath

	filter, err := cfg.LoadSyncFilter()
	if err != nil {
		t.Fatalf("LoadSyncFilter: %v", err)
	}
	want := `{"room":{"timeline":{"limit":50}}}`
	if filter != want {
		t.Errorf("filter = %q, want %q", filter, want)
	}
}

func TestLoadSyncFilter_Unconfigured(t *testing.T) {
	cfg := Default()
	filter, err := cfg.LoadSyncFilter()
	if err != nil {
		t.Fatalf("LoadSyncFilter: %v", err)
	}
	if filter != "" {
		t.Errorf("expected empty filter, got %q", filter)
	}
}

func TestLoadSyncFilter_Invalid(t *testing.T) {
	directory := t.TempDir()
	filterPath := filepath.Join(directory, "filter.jsonc")
	if err := os.WriteFile(filterPath, []byte(`{"room": `), 0600); err != nil {
		t.Fatalf("writing filter: %v", err)
	}

	cfg := Default()
	cfg.Sync.FilterFile = filterPath
	if _, err := cfg.LoadSyncFilter(); err == nil {
		t.Fatal("expected error for invalid filter")
	}
}
