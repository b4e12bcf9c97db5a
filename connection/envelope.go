// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
)

// Envelope is one classified unit of protocol traffic delivered from
// the sync loop to the foreground. Delivery order within a room is
// preserved; delivery across rooms interleaves arbitrarily.
type Envelope interface {
	envelope()
}

// LoginComplete reports a successful login, delivered once before any
// room traffic.
type LoginComplete struct {
	UserID   ref.UserID
	DeviceID string
}

// RestoredRoom announces a room known from the persisted session
// store, with its last recorded historical token. Delivered once per
// stored room, before the first sync response.
type RestoredRoom struct {
	RoomID    ref.RoomID
	PrevBatch string
}

// RoomAdvance carries a sync section's prev_batch token, delivered
// before that section's timeline events so the room session can
// reseed its pagination cursor.
type RoomAdvance struct {
	RoomID    ref.RoomID
	PrevBatch string
}

// RoomState is a state event from the initial state block of a sync
// section.
type RoomState struct {
	RoomID ref.RoomID
	Event  messaging.Event
}

// RoomTimeline is a live timeline event.
type RoomTimeline struct {
	RoomID ref.RoomID
	Event  messaging.Event
}

// Membership is an m.room.member event, pre-split from general state
// so the foreground can route it with its origin intact: IsState
// distinguishes the initial state block from live timeline membership
// changes.
type Membership struct {
	RoomID  ref.RoomID
	Event   messaging.Event
	IsState bool
}

// RoomTyping carries the users currently typing in a room.
type RoomTyping struct {
	RoomID  ref.RoomID
	UserIDs []ref.UserID
}

// ToDevice is a direct device-to-device event.
type ToDevice struct {
	Event messaging.Event
}

// TransportError surfaces a sync-loop failure as an opaque status
// string. The loop keeps running; the error is informational.
type TransportError struct {
	Message string
}

func (LoginComplete) envelope()  {}
func (RestoredRoom) envelope()   {}
func (RoomAdvance) envelope()    {}
func (RoomState) envelope()      {}
func (RoomTimeline) envelope()   {}
func (Membership) envelope()     {}
func (RoomTyping) envelope()     {}
func (ToDevice) envelope()       {}
func (TransportError) envelope() {}
