// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/parley-chat/parley/lib/ref"
)

// Session is the interface the timeline and connection layers use to
// talk to the homeserver. *DirectSession is the production
// implementation; tests substitute fakes to script send failures and
// sync responses without a server.
//
// Operator-style methods (AccessToken, DeviceID, Logout) are not part
// of this interface. Code that needs them should type-assert to
// *DirectSession.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID
	// (e.g., "@alice:example.org").
	UserID() ref.UserID

	// Close releases any resources held by the session. Idempotent.
	Close() error

	// WhoAmI validates the session and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// SendMessage sends an m.room.message event with the given
	// transaction ID. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content MessageContent) (ref.EventID, error)

	// SendEvent sends an event of any type with the given transaction
	// ID. Returns the event ID.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, transactionID string, content any) (ref.EventID, error)

	// RedactEvent redacts an event. Returns the redaction's event ID.
	RedactEvent(ctx context.Context, roomID ref.RoomID, target ref.EventID, transactionID, reason string) (ref.EventID, error)

	// SendTyping starts or stops a typing notification in a room.
	SendTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout int64) error

	// RoomMessages fetches paginated history from a room.
	RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error)

	// Sync performs an incremental sync with the homeserver.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// JoinRoom joins a room by room ID. To join by alias, resolve with
	// ResolveAlias first.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// LeaveRoom leaves a room.
	LeaveRoom(ctx context.Context, roomID ref.RoomID) error

	// InviteUser invites a user to a room.
	InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error

	// JoinedRooms returns the list of room IDs the user has joined.
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)

	// GetRoomMembers returns the members of a room.
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)

	// GetDisplayName fetches a user's profile display name.
	GetDisplayName(ctx context.Context, userID ref.UserID) (string, error)

	// ResolveAlias resolves a room alias to a room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
