// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface components for
// Parley's chat client. Built on bubbletea (Elm architecture), these
// components handle the common chrome: the color theme, sender nick
// coloring, the timeline scrollbar, and activity highlighting for the
// room list.
//
// The main client in cmd/parley imports this package for consistent
// look and behavior. Rendering of individual timeline events lives in
// the render package, which owns markdown and syntax highlighting.
package tui
