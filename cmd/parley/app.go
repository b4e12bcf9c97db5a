// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/client"
	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/config"
	"github.com/parley-chat/parley/lib/ref"
)

// appMsgBacklog bounds the bridge channel between the client
// goroutine and the bubbletea loop. Updates past the bound are
// dropped: they only request a redraw, and a later update repaints
// the same state.
const appMsgBacklog = 256

// roomUpdateMsg reports that an envelope changed a room and the view
// should repaint.
type roomUpdateMsg struct {
	roomID ref.RoomID
}

// statusNoteMsg carries a user-facing status line (login confirmation,
// transport trouble, rejected input).
type statusNoteMsg struct {
	text string
}

// historyFetchedMsg reports completion of a backfill request.
type historyFetchedMsg struct {
	roomID ref.RoomID
	err    error
}

// sendDoneMsg reports completion of a message send.
type sendDoneMsg struct {
	roomID ref.RoomID
	err    error
}

// activityTickMsg drives the room-list glow decay animation.
type activityTickMsg struct{}

// app holds the state shared between the bubbletea model and the
// background connection goroutines. The model is copied by value on
// every Update; everything that outlives a single frame lives here.
type app struct {
	config *config.Config
	client *client.Client
	logger *slog.Logger

	// events bridges client callbacks into the bubbletea loop. The
	// model's Init command blocks on it and re-arms after each
	// message.
	events chan tea.Msg

	mu      sync.Mutex
	buffers map[ref.RoomID]*display.LineBuffer
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{
		config:  cfg,
		logger:  logger,
		events:  make(chan tea.Msg, appMsgBacklog),
		buffers: make(map[ref.RoomID]*display.LineBuffer),
	}
}

// newBuffer is the client's BufferFactory. Called from the client
// goroutine on first sight of a room.
func (a *app) newBuffer(roomID ref.RoomID) display.Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	buffer := display.NewLineBuffer()
	a.buffers[roomID] = buffer
	return buffer
}

// buffer returns the display buffer for a room, or nil when the room
// has not been seen yet.
func (a *app) buffer(roomID ref.RoomID) *display.LineBuffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffers[roomID]
}

func (a *app) postRoomUpdate(roomID ref.RoomID) {
	a.post(roomUpdateMsg{roomID: roomID})
}

func (a *app) postStatus(text string) {
	a.post(statusNoteMsg{text: text})
}

// post delivers a message to the bubbletea loop without blocking the
// client goroutine. A full channel means the UI is far behind; the
// dropped message is a redraw request that the next one covers.
func (a *app) post(message tea.Msg) {
	select {
	case a.events <- message:
	default:
	}
}

// listenForAppMsg returns a command that blocks until the client posts
// a message, then delivers it. The Update handler re-arms it after
// every delivery.
func listenForAppMsg(channel <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-channel
	}
}
