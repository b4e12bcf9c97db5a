// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package display defines the line-oriented surface a room timeline is
// written to. A [Buffer] holds an ordered sequence of [Line] values,
// each carrying its timestamp, tags, prefix, and message; the lines
// are the only durable timeline state the client keeps, so edits,
// redactions, and re-sorts all operate by rewriting lines in place.
//
// [LineBuffer] is the in-memory implementation used by the TUI and by
// tests. It is safe for concurrent use: the envelope loop appends and
// mutates while the TUI reads snapshots.
package display
