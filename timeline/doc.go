// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeline reconciles a room's three event sources into one
// ordered, mutation-aware display buffer: the live sync stream,
// on-demand historical pagination, and the user's own just-sent
// messages.
//
// The display buffer's lines are the only durable timeline state.
// There is no side index; a line's identity (event ID, sender,
// transaction ID) travels in its tags, and edits and redactions find
// their targets by scanning lines backward.
//
// Each shared structure is independently synchronized (echo queue
// mutex, cursor mutex, single-flight guard, the buffer's own lock), so
// RoomSession methods may be called from the UI goroutine and the
// envelope-loop goroutine concurrently. Per-room event ordering is
// preserved by the connection's single envelope channel.
package timeline
