// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"
)

// ActivityDecayDuration is how long a room glows in the room list after
// a message arrives. Intensity starts at 1.0 and decays linearly to 0.0
// over this duration.
const ActivityDecayDuration = 5 * time.Second

// ActivityTickInterval is the re-render interval while any rooms are
// glowing. 100ms gives ~10fps animation for smooth color decay.
const ActivityTickInterval = 100 * time.Millisecond

// ActivityKind distinguishes message traffic from mentions for color
// selection.
type ActivityKind int

const (
	// ActivityOrdinary indicates an ordinary message arrived (amber glow).
	ActivityOrdinary ActivityKind = iota
	// ActivityHighlight indicates a message mentioning the user (red glow).
	ActivityHighlight
)

type activityEntry struct {
	arrival time.Time
	kind    ActivityKind
}

// ActivityTracker maps room IDs to arrival timestamps for animated
// room-list highlighting. Each incoming message "ignites" its room,
// which then decays from full intensity to zero over
// [ActivityDecayDuration].
type ActivityTracker struct {
	entries map[string]activityEntry
}

// NewActivityTracker creates an empty activity tracker.
func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{
		entries: make(map[string]activityEntry),
	}
}

// Ignite records message arrival for a room. Resets the decay timer if
// the room was already glowing. A highlight is never downgraded by a
// later ordinary message while still hot.
func (tracker *ActivityTracker) Ignite(roomID string, kind ActivityKind, now time.Time) {
	existing, exists := tracker.entries[roomID]
	if exists && existing.kind == ActivityHighlight && kind == ActivityOrdinary {
		if now.Sub(existing.arrival) < ActivityDecayDuration {
			tracker.entries[roomID] = activityEntry{arrival: now, kind: ActivityHighlight}
			return
		}
	}
	tracker.entries[roomID] = activityEntry{arrival: now, kind: kind}
}

// Intensity returns the current glow for a room: 1.0 at arrival,
// linearly decaying to 0.0 over [ActivityDecayDuration]. Returns 0.0
// for rooms with no recent traffic.
func (tracker *ActivityTracker) Intensity(roomID string, now time.Time) float64 {
	entry, exists := tracker.entries[roomID]
	if !exists {
		return 0.0
	}
	elapsed := now.Sub(entry.arrival)
	if elapsed >= ActivityDecayDuration {
		return 0.0
	}
	return 1.0 - float64(elapsed)/float64(ActivityDecayDuration)
}

// Kind returns the activity kind for a room. Only meaningful when
// Intensity() returns > 0.
func (tracker *ActivityTracker) Kind(roomID string) ActivityKind {
	entry, exists := tracker.entries[roomID]
	if !exists {
		return ActivityOrdinary
	}
	return entry.kind
}

// HasHot returns true if any tracked room still glows, meaning the tick
// timer should keep running for animation.
func (tracker *ActivityTracker) HasHot(now time.Time) bool {
	for roomID, entry := range tracker.entries {
		if now.Sub(entry.arrival) < ActivityDecayDuration {
			return true
		}
		// Garbage-collect fully decayed entries.
		delete(tracker.entries, roomID)
	}
	return false
}
