// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
	"github.com/parley-chat/parley/render"
)

// HandleSyncRoomEvent routes one live event from the sync stream.
//
// Events carrying a transaction ID matching a pending send are treated
// as own-message confirmations regardless of apparent content; that
// check runs first and short-circuits all other handling. Redactions
// and edits mutate previously rendered lines; everything else renders
// and appends. Unparseable events are silently skipped, permanently:
// forward compatibility requires tolerating unknown event shapes.
func (s *RoomSession) HandleSyncRoomEvent(ctx context.Context, event messaging.Event) {
	s.reseedCursor()

	if event.IsState() {
		s.handleStateEvent(event, false)
		return
	}

	if event.Type == ref.EventTypeMessage {
		if transactionID := event.TransactionID(); transactionID != "" && s.echoes.Contains(transactionID) {
			s.confirm(ctx, transactionID, event.EventID)
			return
		}
	}

	switch event.Type {
	case ref.EventTypeRedaction:
		s.handleRedaction(ctx, event)
	case ref.EventTypeMessage:
		if target, replacement, ok := event.EditTarget(); ok {
			s.handleEdit(ctx, event, target, replacement)
			return
		}
		s.renderAndAppend(ctx, event)
	default:
		// Unknown timeline event type; skip.
	}
}

// HandleStateEvent routes one event from the initial state block of a
// sync response. State events update side-channel room attributes and
// never produce timeline lines.
func (s *RoomSession) HandleStateEvent(event messaging.Event) {
	s.reseedCursor()
	s.handleStateEvent(event, true)
}

// HandleRoomEvent routes one historical event from a pagination fetch.
// Historical events are already-settled past: they never consult the
// pending-echo queue. A historical event that is itself an edit is
// suppressed entirely, because the page containing the edited-from
// event will render instead and the superseded original must not
// appear twice. Historical redactions and state changes are not
// rendered.
func (s *RoomSession) HandleRoomEvent(ctx context.Context, event messaging.Event) {
	if event.IsState() || event.Type == ref.EventTypeRedaction {
		return
	}
	if event.Type != ref.EventTypeMessage {
		return
	}
	if _, _, ok := event.EditTarget(); ok {
		return
	}
	s.renderAndAppend(ctx, event)
}

// reseedCursor repairs the pagination cursor when the timeline holds
// zero lines, so that scrollback is loadable again after a buffer
// clear. A Forward cursor is left alone: the restore's one-time
// forward fetch has not run yet, and the empty buffer is expected.
func (s *RoomSession) reseedCursor() {
	buffer := s.currentBuffer()
	if buffer == nil || buffer.Len() != 0 {
		return
	}
	s.mu.Lock()
	prevBatch := s.lastPrevBatch
	s.mu.Unlock()
	if prevBatch == "" {
		return
	}
	if state, ok := s.cursor.Load(); ok && state.Direction == DirectionForward {
		return
	}
	s.cursor.Store(Backwards(prevBatch))
}

// renderAndAppend resolves the sender, renders the event, and appends
// its lines. A sender the roster cannot resolve is a reconciliation
// ordering bug: logged as an error, fatal to this one event only.
func (s *RoomSession) renderAndAppend(ctx context.Context, event messaging.Event) {
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}
	content, ok := event.Message()
	if !ok {
		return
	}
	sender, err := s.eventSender(ctx, event.Sender)
	if err != nil {
		s.logger.Error("cannot resolve event sender, dropping event",
			"event_id", event.EventID, "sender", event.Sender, "error", err)
		return
	}
	rendered, ok := s.renderer.Message(event.EventID, event.OriginServerTS, sender, content)
	if !ok {
		return
	}
	appendRendered(buffer, rendered, s.clock.Now().UnixMilli())
}

func (s *RoomSession) handleRedaction(ctx context.Context, event messaging.Event) {
	target, ok := event.RedactsTarget()
	if !ok {
		return
	}
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}
	nick := event.Sender.Localpart()
	if member, err := s.roster.Get(ctx, event.Sender); err == nil {
		nick = member.Nick
	}
	notice := render.RedactionNotice(nick, event.RedactionReason())
	// A missing or already-redacted target is an expected race, not an
	// error: the redacted event may simply not be in the visible
	// window.
	applyRedaction(buffer, target, notice, s.redactionStyle)
}

func (s *RoomSession) handleEdit(ctx context.Context, event messaging.Event, target ref.EventID, replacement messaging.MessageContent) {
	buffer := s.currentBuffer()
	if buffer == nil {
		return
	}
	sender, err := s.eventSender(ctx, event.Sender)
	if err != nil {
		s.logger.Error("cannot resolve edit sender, dropping edit",
			"event_id", event.EventID, "sender", event.Sender, "error", err)
		return
	}
	rendered, ok := s.renderer.Message(target, event.OriginServerTS, sender, replacement)
	if !ok {
		return
	}
	if applyEdit(buffer, target, event.Sender, rendered, s.clock.Now().UnixMilli()) {
		// The replacement may have appended surplus lines out of
		// timestamp order.
		resortTimeline(buffer)
	}
}

// handleStateEvent updates side-channel room attributes. Membership
// events are delegated to the roster and produce a timeline line only
// when they arrived as part of the live timeline, not the initial
// state block.
func (s *RoomSession) handleStateEvent(event messaging.Event, isState bool) {
	switch event.Type {
	case ref.EventTypeName:
		if name, ok := event.Content["name"].(string); ok {
			if buffer := s.currentBuffer(); buffer != nil {
				buffer.SetShortName(name)
			}
		}
	case ref.EventTypeTopic:
		if topic, ok := event.Content["topic"].(string); ok {
			if buffer := s.currentBuffer(); buffer != nil {
				buffer.SetTitle(topic)
			}
		}
	case ref.EventTypeCanonicalAlias:
		if alias, ok := event.Content["alias"].(string); ok {
			if buffer := s.currentBuffer(); buffer != nil {
				buffer.SetLocalVar("alias", alias)
			}
		}
	case ref.EventTypeMember:
		s.roster.HandleMembershipEvent(event, isState)
		if !isState {
			s.appendMembershipLine(event)
		}
	}
}

// appendMembershipLine prints a join or leave notice for a live
// membership change.
func (s *RoomSession) appendMembershipLine(event messaging.Event) {
	buffer := s.currentBuffer()
	if buffer == nil || event.StateKey == nil {
		return
	}
	userID, err := ref.ParseUserID(*event.StateKey)
	if err != nil {
		return
	}
	nick := userID.Localpart()
	if name, ok := event.Content["displayname"].(string); ok && name != "" {
		nick = name
	}

	var prefix, message string
	switch membership, _ := event.Content["membership"].(string); membership {
	case "join":
		prefix = "-->"
		message = fmt.Sprintf("%s (%s) has joined", nick, userID)
	case "leave":
		prefix = "<--"
		message = fmt.Sprintf("%s (%s) has left", nick, userID)
	case "ban":
		prefix = "<--"
		message = fmt.Sprintf("%s (%s) has been banned", nick, userID)
	default:
		return
	}

	buffer.AppendLine(display.Line{
		Date:        event.OriginServerTS,
		DatePrinted: s.clock.Now().UnixMilli(),
		Tags: []string{
			display.EventIDTag(event.EventID.String()),
			display.SenderTag(event.Sender.String()),
		},
		Prefix:  prefix,
		Message: message,
	})
}

// eventSender resolves a sender through the roster into a
// render.Sender, marking the local user as self.
func (s *RoomSession) eventSender(ctx context.Context, userID ref.UserID) (render.Sender, error) {
	member, err := s.roster.Get(ctx, userID)
	if err != nil {
		return render.Sender{}, err
	}
	sender := senderFromMember(member)
	sender.Self = userID == s.ownUserID
	return sender, nil
}
