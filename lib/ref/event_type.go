// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type
// (e.g., "m.room.message", "m.room.member").
//
// EventType is a named string type, not a struct wrapper: event types
// are opaque identifiers that need no parsing or validation. The type
// exists purely for compile-time safety — preventing accidental use of
// a state key where an event type is expected (or vice versa).
type EventType string

// Standard Matrix event types this client routes on.
const (
	EventTypeMessage        EventType = "m.room.message"
	EventTypeRedaction      EventType = "m.room.redaction"
	EventTypeMember         EventType = "m.room.member"
	EventTypeName           EventType = "m.room.name"
	EventTypeTopic          EventType = "m.room.topic"
	EventTypeCanonicalAlias EventType = "m.room.canonical_alias"
	EventTypeEncrypted      EventType = "m.room.encrypted"
	EventTypeTyping         EventType = "m.typing"
)

// String returns the event type string (e.g., "m.room.message").
func (t EventType) String() string { return string(t) }
