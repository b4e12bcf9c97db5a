// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Parley.
//
// Configuration is loaded from a single file specified by either the
// PARLEY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${PARLEY_STATE}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// The sync filter is a separate JSONC file referenced by
// Sync.FilterFile and loaded with [Config.LoadSyncFilter]. JSONC
// (JSON with comments and trailing commas) is used because filter
// files are hand-edited and benefit from inline commentary.
//
// Key exports:
//
//   - [Config] -- master struct with Homeserver, Paths, Sync, Timeline
//   - [Default] -- returns a Config with built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Parley packages.
package config
