// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/tui"
	"github.com/parley-chat/parley/messaging"
	"github.com/parley-chat/parley/render"
	"github.com/parley-chat/parley/timeline"
)

// typingTimeoutMilliseconds is the server-side expiry sent with typing
// notifications. Refreshed implicitly: each keystroke in a non-empty
// composer re-starts the notice.
const typingTimeoutMilliseconds = 30000

// roomListWidth is the fixed width of the room list pane.
const roomListWidth = 22

// chromeHeight is the number of non-viewport rows: header, status bar,
// and the input line.
const chromeHeight = 3

// model is the top-level bubbletea model for the chat TUI.
type model struct {
	app     *app
	theme   tui.Theme
	tracker *tui.ActivityTracker

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// rooms is the sorted room list; activeRoom survives re-sorts.
	rooms      []ref.RoomID
	activeRoom ref.RoomID

	viewport viewport.Model
	input    textinput.Model

	// status is the one-line status bar text.
	status string

	// typingSent is true while the server believes we are typing.
	typingSent bool

	// tickRunning is true while the activity decay animation timer
	// is armed.
	tickRunning bool
}

func newModel(application *app) model {
	input := textinput.New()
	input.Placeholder = "message"
	input.Prompt = "> "
	input.Focus()

	return model{
		app:     application,
		theme:   tui.DefaultTheme,
		tracker: tui.NewActivityTracker(),
		input:   input,
		status:  "connecting",
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(listenForAppMsg(m.app.events), textinput.Blink)
}

// Update implements tea.Model.
func (m model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		m.resize()
		m.ready = true
		m.refreshViewport(true)
		return m, nil

	case roomUpdateMsg:
		commands := []tea.Cmd{listenForAppMsg(m.app.events)}
		m.observeRoom(message.roomID)
		if message.roomID != m.activeRoom {
			m.tracker.Ignite(message.roomID.String(), tui.ActivityOrdinary, time.Now())
			if !m.tickRunning {
				m.tickRunning = true
				commands = append(commands, activityTick())
			}
		} else {
			m.refreshViewport(m.viewport.AtBottom())
		}
		return m, tea.Batch(commands...)

	case statusNoteMsg:
		m.status = message.text
		return m, listenForAppMsg(m.app.events)

	case activityTickMsg:
		if m.tracker.HasHot(time.Now()) {
			return m, activityTick()
		}
		m.tickRunning = false
		return m, nil

	case historyFetchedMsg:
		if message.err != nil {
			m.status = fmt.Sprintf("history fetch failed: %v", message.err)
		}
		if message.roomID == m.activeRoom {
			// Backfill prepends: keep the view pinned rather than
			// jumping to the new bottom.
			m.refreshViewport(false)
		}
		return m, nil

	case sendDoneMsg:
		if message.err != nil {
			m.status = fmt.Sprintf("send failed: %v", message.err)
		}
		if message.roomID == m.activeRoom {
			m.refreshViewport(true)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(message)

	case tea.MouseMsg:
		var command tea.Cmd
		m.viewport, command = m.viewport.Update(message)
		return m, command
	}

	var command tea.Cmd
	m.input, command = m.input.Update(message)
	return m, command
}

func (m model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+n":
		m.switchRoom(1)
		return m, nil

	case "ctrl+p":
		m.switchRoom(-1)
		return m, nil

	case "pgup":
		if m.viewport.AtTop() {
			if room := m.activeSession(); room != nil {
				return m, fetchHistory(room)
			}
			return m, nil
		}
		var command tea.Cmd
		m.viewport, command = m.viewport.Update(message)
		return m, command

	case "pgdown":
		var command tea.Cmd
		m.viewport, command = m.viewport.Update(message)
		return m, command

	case "enter":
		return m.submit()
	}

	wasEmpty := m.input.Value() == ""
	var command tea.Cmd
	m.input, command = m.input.Update(message)
	commands := []tea.Cmd{command}

	if typingCommand := m.typingTransition(wasEmpty); typingCommand != nil {
		commands = append(commands, typingCommand)
	}
	return m, tea.Batch(commands...)
}

// typingTransition emits typing start/stop notifications as the
// composer crosses between empty and non-empty. Disabled entirely by
// timeline.typing_notices.
func (m *model) typingTransition(wasEmpty bool) tea.Cmd {
	if !m.app.config.Timeline.TypingNotices {
		return nil
	}
	room := m.activeSession()
	if room == nil {
		return nil
	}

	nowEmpty := m.input.Value() == ""
	switch {
	case wasEmpty && !nowEmpty && !m.typingSent:
		m.typingSent = true
		return sendTyping(room, true)
	case !wasEmpty && nowEmpty && m.typingSent:
		m.typingSent = false
		return sendTyping(room, false)
	}
	return nil
}

// submit sends the composed message to the active room. Input starting
// with "/" is rejected: parley has no command language, and silently
// sending what looks like a command would leak it into the room.
func (m model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.status = fmt.Sprintf("commands are not supported: %q not sent", firstWord(text))
		return m, nil
	}

	room := m.activeSession()
	if room == nil {
		m.status = "no room selected"
		return m, nil
	}

	content := messaging.NewTextMessage(text)
	if m.app.config.Timeline.MarkdownInput {
		if html, ok := render.MarkdownToHTML(text); ok {
			content = messaging.NewFormattedMessage(text, html)
		}
	}

	m.input.Reset()
	commands := []tea.Cmd{sendMessage(room, content)}
	if m.typingSent {
		m.typingSent = false
		commands = append(commands, sendTyping(room, false))
	}
	return m, tea.Batch(commands...)
}

// observeRoom adds a newly seen room to the sorted list and selects it
// when nothing is active yet.
func (m *model) observeRoom(roomID ref.RoomID) {
	for _, known := range m.rooms {
		if known == roomID {
			m.sortRooms()
			return
		}
	}
	m.rooms = append(m.rooms, roomID)
	m.sortRooms()
	if m.activeRoom.IsZero() {
		m.activeRoom = roomID
		m.refreshViewport(true)
	}
}

// sortRooms orders the room list by display label. Labels change as
// room name state arrives, so the order is recomputed on every room
// update.
func (m *model) sortRooms() {
	sort.SliceStable(m.rooms, func(i, j int) bool {
		labelI, labelJ := m.roomLabel(m.rooms[i]), m.roomLabel(m.rooms[j])
		if labelI != labelJ {
			return labelI < labelJ
		}
		return m.rooms[i].String() < m.rooms[j].String()
	})
}

// roomLabel is the name shown in the room list: the room's display
// name when known, otherwise the raw room ID.
func (m *model) roomLabel(roomID ref.RoomID) string {
	if buffer := m.app.buffer(roomID); buffer != nil {
		if name := buffer.ShortName(); name != "" {
			return name
		}
	}
	return roomID.String()
}

// switchRoom moves the active room by offset within the sorted list,
// wrapping at the ends.
func (m *model) switchRoom(offset int) {
	if len(m.rooms) == 0 {
		return
	}
	index := 0
	for i, roomID := range m.rooms {
		if roomID == m.activeRoom {
			index = i
			break
		}
	}
	index = (index + offset + len(m.rooms)) % len(m.rooms)
	m.activeRoom = m.rooms[index]
	m.refreshViewport(true)
}

// activeSession returns the timeline session for the active room, or
// nil when no room is active yet.
func (m *model) activeSession() *timeline.RoomSession {
	if m.activeRoom.IsZero() || m.app.client == nil {
		return nil
	}
	return m.app.client.Room(m.activeRoom)
}

func (m *model) resize() {
	contentWidth := m.width - roomListWidth - 2 // divider + scrollbar
	if contentWidth < 1 {
		contentWidth = 1
	}
	contentHeight := m.height - chromeHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.Width = m.width - len(m.input.Prompt) - 1
}

// refreshViewport rebuilds the viewport content from the active room's
// buffer. followTail pins the view to the newest line.
func (m *model) refreshViewport(followTail bool) {
	if !m.ready {
		return
	}
	buffer := m.app.buffer(m.activeRoom)
	if buffer == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(renderTimeline(buffer, m.viewport.Width))
	if followTail {
		m.viewport.GotoBottom()
	}
}

func activityTick() tea.Cmd {
	return tea.Tick(tui.ActivityTickInterval, func(time.Time) tea.Msg {
		return activityTickMsg{}
	})
}

func fetchHistory(room *timeline.RoomSession) tea.Cmd {
	return func() tea.Msg {
		err := room.GetMessages(context.Background())
		return historyFetchedMsg{roomID: room.RoomID(), err: err}
	}
}

func sendMessage(room *timeline.RoomSession, content messaging.MessageContent) tea.Cmd {
	return func() tea.Msg {
		err := room.Send(context.Background(), content)
		return sendDoneMsg{roomID: room.RoomID(), err: err}
	}
}

func sendTyping(room *timeline.RoomSession, typing bool) tea.Cmd {
	return func() tea.Msg {
		// Best-effort: a lost typing notice is invisible noise.
		_ = room.SendTyping(context.Background(), typing, typingTimeoutMilliseconds)
		return nil
	}
}

func firstWord(text string) string {
	if index := strings.IndexByte(text, ' '); index >= 0 {
		return text[:index]
	}
	return text
}
