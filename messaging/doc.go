// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for Parley.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client that handles password login, returning authenticated
// [DirectSession] values. Client holds the homeserver URL and HTTP
// transport, shared across all sessions derived from it.
//
// [DirectSession] wraps a Client with an access token for authenticated
// operations: sending messages and redactions with caller-supplied
// transaction IDs, incremental sync with long-polling, paginated room
// history via /messages, room membership (join, leave, invite), member
// and profile lookups, typing notifications, and alias resolution.
//
// Transaction IDs are supplied by the caller rather than generated
// here: the timeline layer uses them to correlate local echoes with
// the confirmed events that come back down /sync, so the ID must be
// chosen before the send and remembered across it.
//
// The access token lives in mmap-backed secret.Buffer memory, locked
// against swap and excluded from core dumps; callers must call
// DirectSession.Close to release it.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific code. Request URLs are
// built by string concatenation rather than url.URL to avoid
// double-encoding of path segments such as event IDs.
package messaging
