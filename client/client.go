// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package client routes envelopes from a connection to per-room
// timeline sessions, creating sessions on first sight of a room and
// restoring pagination cursors from persisted state.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parley-chat/parley/connection"
	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
	"github.com/parley-chat/parley/render"
	"github.com/parley-chat/parley/timeline"
)

// BufferFactory creates the display surface for a newly seen room.
// May return nil; the room session tolerates running without one.
type BufferFactory func(roomID ref.RoomID) display.Buffer

// Config configures a Client.
type Config struct {
	// Session is the authenticated transport. Required.
	Session messaging.Session

	// Events is the connection's envelope stream. Required.
	Events <-chan connection.Envelope

	// Renderer turns events into display lines. Required.
	Renderer *render.Renderer

	// NewBuffer creates display surfaces for rooms. May be nil.
	NewBuffer BufferFactory

	// LocalEcho, RedactionStyle, and BackfillLimit are forwarded to
	// each room session.
	LocalEcho      bool
	RedactionStyle timeline.RedactionStyle
	BackfillLimit  int

	// OnStatus receives user-facing status messages (login
	// confirmation, transport errors). May be nil.
	OnStatus func(message string)

	// OnUpdate is called after an envelope changed a room, so the UI
	// can redraw. May be nil.
	OnUpdate func(roomID ref.RoomID)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client owns the per-room timeline sessions and the envelope receive
// loop.
type Client struct {
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[ref.RoomID]*timeline.RoomSession
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("client: Config.Session is required")
	}
	if config.Events == nil {
		return nil, fmt.Errorf("client: Config.Events is required")
	}
	if config.Renderer == nil {
		return nil, fmt.Errorf("client: Config.Renderer is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		logger: logger,
		rooms:  make(map[ref.RoomID]*timeline.RoomSession),
	}, nil
}

// Run receives envelopes until the context is cancelled or the
// envelope channel closes. Channel closure is the normal shutdown
// signal: the loop exits silently.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, open := <-c.config.Events:
			if !open {
				return
			}
			c.handle(ctx, envelope)
		}
	}
}

// Room returns the session for a room, or nil when the room has not
// been seen yet.
func (c *Client) Room(roomID ref.RoomID) *timeline.RoomSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[roomID]
}

// Rooms returns the IDs of all known rooms.
func (c *Client) Rooms() []ref.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]ref.RoomID, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (c *Client) handle(ctx context.Context, envelope connection.Envelope) {
	switch e := envelope.(type) {
	case connection.LoginComplete:
		c.status(fmt.Sprintf("logged in as %s (device %s)", e.UserID, e.DeviceID))

	case connection.TransportError:
		c.status("connection trouble: " + e.Message)

	case connection.RestoredRoom:
		room := c.room(e.RoomID)
		room.Restore(e.PrevBatch)
		room.Advance(e.PrevBatch)
		c.update(e.RoomID)

	case connection.RoomAdvance:
		c.room(e.RoomID).Advance(e.PrevBatch)

	case connection.RoomState:
		c.room(e.RoomID).HandleStateEvent(e.Event)
		c.update(e.RoomID)

	case connection.RoomTimeline:
		c.room(e.RoomID).HandleSyncRoomEvent(ctx, e.Event)
		c.update(e.RoomID)

	case connection.Membership:
		room := c.room(e.RoomID)
		if e.IsState {
			room.HandleStateEvent(e.Event)
		} else {
			room.HandleSyncRoomEvent(ctx, e.Event)
		}
		c.update(e.RoomID)

	case connection.RoomTyping:
		c.room(e.RoomID).HandleTyping(e.UserIDs)
		c.update(e.RoomID)

	case connection.ToDevice:
		// End-to-end encryption is out of scope; to-device traffic is
		// dropped.
		c.logger.Debug("dropping to-device event", "type", e.Event.Type)

	default:
		c.logger.Warn("unhandled envelope", "envelope", fmt.Sprintf("%T", envelope))
	}
}

// room returns the session for a room, creating it on first sight.
func (c *Client) room(roomID ref.RoomID) *timeline.RoomSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room, ok := c.rooms[roomID]; ok {
		return room
	}

	var buffer display.Buffer
	if c.config.NewBuffer != nil {
		buffer = c.config.NewBuffer(roomID)
	}
	room, err := timeline.NewRoomSession(timeline.RoomConfig{
		RoomID:         roomID,
		OwnUserID:      c.config.Session.UserID(),
		Session:        c.config.Session,
		Renderer:       c.config.Renderer,
		Buffer:         buffer,
		LocalEcho:      c.config.LocalEcho,
		RedactionStyle: c.config.RedactionStyle,
		BackfillLimit:  c.config.BackfillLimit,
		OnBusyChanged:  func(bool) { c.update(roomID) },
		Logger:         c.logger,
	})
	if err != nil {
		// Only reachable with a zero room ID, which the connection
		// never produces.
		panic(fmt.Sprintf("client: creating room session: %v", err))
	}
	c.rooms[roomID] = room
	return room
}

func (c *Client) status(message string) {
	if c.config.OnStatus != nil {
		c.config.OnStatus(message)
	}
}

func (c *Client) update(roomID ref.RoomID) {
	if c.config.OnUpdate != nil {
		c.config.OnUpdate(roomID)
	}
}
