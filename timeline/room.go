// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/clock"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
	"github.com/parley-chat/parley/render"
)

// RoomConfig configures a RoomSession.
type RoomConfig struct {
	// RoomID identifies the room. Required.
	RoomID ref.RoomID

	// OwnUserID is the local user, for self-classification and echo
	// rendering. Required.
	OwnUserID ref.UserID

	// Session is the authenticated transport. Required.
	Session messaging.Session

	// Renderer turns events into display lines. Required.
	Renderer *render.Renderer

	// Buffer is the display surface. May be nil; the session tolerates
	// running without one and a buffer can be attached later.
	Buffer display.Buffer

	// LocalEcho enables provisional echo lines for outgoing plain-text
	// messages.
	LocalEcho bool

	// RedactionStyle selects how redacted messages are shown.
	RedactionStyle RedactionStyle

	// BackfillLimit is the page size for history fetches. Zero uses
	// the server default.
	BackfillLimit int

	// OnBusyChanged, when set, is called after the room's busy state
	// changes (a history fetch started or finished).
	OnBusyChanged func(busy bool)

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock defaults to the real clock. Tests inject a fake.
	Clock clock.Clock
}

// RoomSession is the owning aggregate for one joined room: identity,
// pagination cursor, single-flight guard, pending-echo queue, and a
// weakly held display buffer. Created on room join or on session
// restore; never shared across rooms.
type RoomSession struct {
	roomID    ref.RoomID
	ownUserID ref.UserID

	session  messaging.Session
	renderer *render.Renderer
	roster   *Roster
	logger   *slog.Logger
	clock    clock.Clock

	cursor Cursor
	guard  SingleFlightGuard
	echoes *PendingEchoQueue

	localEcho      bool
	redactionStyle RedactionStyle
	backfillLimit  int
	onBusyChanged  func(busy bool)

	mu            sync.Mutex
	buffer        display.Buffer
	lastPrevBatch string
}

// NewRoomSession creates a session for one room.
func NewRoomSession(config RoomConfig) (*RoomSession, error) {
	if config.RoomID.IsZero() {
		return nil, fmt.Errorf("timeline: RoomConfig.RoomID is required")
	}
	if config.OwnUserID.IsZero() {
		return nil, fmt.Errorf("timeline: RoomConfig.OwnUserID is required")
	}
	if config.Session == nil {
		return nil, fmt.Errorf("timeline: RoomConfig.Session is required")
	}
	if config.Renderer == nil {
		return nil, fmt.Errorf("timeline: RoomConfig.Renderer is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("room_id", config.RoomID)
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &RoomSession{
		roomID:         config.RoomID,
		ownUserID:      config.OwnUserID,
		session:        config.Session,
		renderer:       config.Renderer,
		roster:         NewRoster(config.Session, config.RoomID, logger),
		logger:         logger,
		clock:          clk,
		echoes:         NewPendingEchoQueue(),
		localEcho:      config.LocalEcho,
		redactionStyle: config.RedactionStyle,
		backfillLimit:  config.BackfillLimit,
		onBusyChanged:  config.OnBusyChanged,
		buffer:         config.Buffer,
	}, nil
}

// RoomID returns the room this session reconciles.
func (s *RoomSession) RoomID() ref.RoomID { return s.roomID }

// Roster returns the room's membership tracker.
func (s *RoomSession) Roster() *Roster { return s.roster }

// SetBuffer attaches or detaches the display surface. The session
// outlives transient buffer detachment; events handled while the
// buffer is nil are dropped from display but side state (cursor,
// roster, echo queue) is still maintained.
func (s *RoomSession) SetBuffer(buffer display.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buffer
}

func (s *RoomSession) currentBuffer() display.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Busy reports whether a history fetch is in flight. Never blocks.
func (s *RoomSession) Busy() bool { return s.guard.Busy() }

// Restore seeds a Forward cursor from persisted state. The first page
// fetched after a restore goes forward from the persisted token, to
// pick up events that arrived while the client was offline, before
// normal backward paging resumes.
func (s *RoomSession) Restore(token string) {
	s.cursor.Store(Forward(token))
}

// Advance records the room's latest historical token from a sync
// response. It becomes the reseed source when the timeline is empty.
func (s *RoomSession) Advance(prevBatch string) {
	if prevBatch == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrevBatch = prevBatch
}

// Send transmits a message to the room. When local echo is enabled and
// the content is unformatted text, a provisional line tagged with the
// transaction ID is appended immediately and replaced on confirmation.
// Exactly one of confirmation or failure cleanup runs per transaction,
// regardless of whether the direct response or the sync echo arrives
// first.
func (s *RoomSession) Send(ctx context.Context, content messaging.MessageContent) error {
	transactionID := uuid.NewString()

	echoed := false
	if s.localEcho && content.MsgType == messaging.MsgText && content.Format == "" {
		if buffer := s.currentBuffer(); buffer != nil {
			now := s.clock.Now().UnixMilli()
			rendered := s.renderer.Echo(transactionID, now, s.selfSender(ctx), content.Body)
			appendRendered(buffer, rendered, now)
			echoed = true
		}
	}
	if echoed {
		s.echoes.AddWithEcho(transactionID, content)
	} else {
		s.echoes.Add(transactionID, content)
	}

	eventID, err := s.session.SendMessage(ctx, s.roomID, transactionID, content)
	if err != nil {
		s.sendFailed(transactionID, err)
		return fmt.Errorf("timeline: sending to %s: %w", s.roomID, err)
	}
	s.confirm(ctx, transactionID, eventID)
	return nil
}

// sendFailed removes the queue entry without confirming and marks the
// stale echo line, if any, as failed.
func (s *RoomSession) sendFailed(transactionID string, sendErr error) {
	_, hasEcho, ok := s.echoes.Remove(transactionID)
	if !ok || !hasEcho {
		return
	}
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}
	for _, index := range linesTagged(buffer, display.TransactionTag(transactionID)) {
		line, ok := buffer.Line(index)
		if !ok {
			continue
		}
		line.Tags = append(line.Tags, display.TagFailed)
		line.Message = fmt.Sprintf("%s (send failed: %v)", line.Message, sendErr)
		buffer.SetLine(index, line)
	}
}

// confirm applies a server confirmation for one of our sends. A
// missing queue entry is a no-op: the event was already confirmed via
// the other path.
func (s *RoomSession) confirm(ctx context.Context, transactionID string, eventID ref.EventID) {
	content, hasEcho, ok := s.echoes.Remove(transactionID)
	if !ok {
		return
	}
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}

	now := s.clock.Now().UnixMilli()
	rendered, ok := s.renderer.Message(eventID, now, s.selfSender(ctx), content)
	if !ok {
		s.logger.Warn("confirmed message content not renderable",
			"event_id", eventID, "msgtype", content.MsgType)
		return
	}
	if hasEcho {
		if replaceTagged(buffer, display.TransactionTag(transactionID), rendered, now) {
			return
		}
		// Echo line gone (buffer was cleared); fall through to append.
	}
	appendRendered(buffer, rendered, now)
}

// selfSender returns the local user as a render.Sender, using the
// roster nick when available.
func (s *RoomSession) selfSender(ctx context.Context) render.Sender {
	member, err := s.roster.Get(ctx, s.ownUserID)
	if err != nil {
		member = Member{UserID: s.ownUserID, Nick: s.ownUserID.Localpart()}
	}
	sender := senderFromMember(member)
	sender.Self = true
	return sender
}

func senderFromMember(member Member) render.Sender {
	return render.Sender{
		UserID:    member.UserID,
		Nick:      member.Nick,
		Ambiguous: member.Ambiguous,
	}
}

// SendRedaction redacts an event in this room.
func (s *RoomSession) SendRedaction(ctx context.Context, target ref.EventID, reason string) error {
	transactionID := uuid.NewString()
	if _, err := s.session.RedactEvent(ctx, s.roomID, target, transactionID, reason); err != nil {
		return fmt.Errorf("timeline: redacting %s: %w", target, err)
	}
	return nil
}

// SendTyping forwards a typing notification for this room.
func (s *RoomSession) SendTyping(ctx context.Context, typing bool, timeout int64) error {
	return s.session.SendTyping(ctx, s.roomID, typing, timeout)
}

// GetMessages fetches one page of history. It fails fast, without side
// effects, when there is no cursor (history exhausted or not yet
// established) or when another fetch for this room is already in
// flight. A transport failure leaves the cursor untouched, so the
// fetch is safe to retry.
func (s *RoomSession) GetMessages(ctx context.Context) error {
	state, ok := s.cursor.Load()
	if !ok {
		return nil
	}
	if !s.guard.TryAcquire() {
		return nil
	}
	defer func() {
		s.guard.Release()
		s.notifyBusy(false)
	}()
	s.notifyBusy(true)

	direction := "b"
	if state.Direction == DirectionForward {
		direction = "f"
	}
	response, err := s.session.RoomMessages(ctx, s.roomID, messaging.RoomMessagesOptions{
		From:      state.Token,
		Direction: direction,
		Limit:     s.backfillLimit,
	})
	if err != nil {
		return fmt.Errorf("timeline: fetching history for %s: %w", s.roomID, err)
	}

	for _, event := range response.Chunk {
		s.HandleRoomEvent(ctx, event)
	}

	switch {
	case state.Direction == DirectionForward:
		// One-time forward reconciliation after a restore: flip to the
		// normal backward cursor on the same token. Forward-fetched
		// events may have landed out of order relative to existing
		// lines.
		s.cursor.Store(Backwards(state.Token))
		s.resort()
	case len(response.Chunk) == 0:
		s.cursor.Clear()
	case response.End == "":
		// A page without a continuation token is the last one. Storing
		// the empty token would make the next fetch a from-less call
		// that re-reads the live edge.
		s.cursor.Clear()
		s.resort()
	default:
		s.cursor.Store(Backwards(response.End))
		s.resort()
	}
	return nil
}

func (s *RoomSession) resort() {
	if buffer := s.currentBuffer(); buffer != nil {
		resortTimeline(buffer)
	}
}

func (s *RoomSession) notifyBusy(busy bool) {
	if s.onBusyChanged != nil {
		s.onBusyChanged(busy)
	}
}

// HandleTyping updates the buffer's typing-notice variable from an
// ephemeral typing event. Only cached nicks are used; typing notices
// are not worth a profile fetch.
func (s *RoomSession) HandleTyping(userIDs []ref.UserID) {
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}
	var nicks []string
	for _, userID := range userIDs {
		if userID == s.ownUserID {
			continue
		}
		if member, ok := s.roster.Lookup(userID); ok {
			nicks = append(nicks, member.Nick)
		} else {
			nicks = append(nicks, userID.Localpart())
		}
	}
	buffer.SetLocalVar("typing", strings.Join(nicks, ", "))
}
