// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package connection runs the background transport for one homeserver:
// login, the /sync long-poll loop, and session persistence. Classified
// protocol events flow to the foreground over a single bounded
// envelope channel, which preserves per-room ordering and provides
// backpressure when the consumer falls behind.
package connection
