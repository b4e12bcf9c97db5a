// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/clock"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/tui"
	"github.com/parley-chat/parley/messaging"
	"github.com/parley-chat/parley/render"
)

var (
	testRoomID = ref.MustParseRoomID("!room:example.org")
	ownUser    = ref.MustParseUserID("@me:example.org")
	aliceUser  = ref.MustParseUserID("@alice:example.org")
	eveUser    = ref.MustParseUserID("@eve:example.org")
)

// fakeSession is an in-memory messaging.Session recording the calls
// the room session makes.
type fakeSession struct {
	userID ref.UserID

	sendErr     error
	sentEventID ref.EventID
	sentTxns    []string
	sentContent []messaging.MessageContent
	// onSend runs before SendMessage returns, simulating a sync
	// confirmation racing ahead of the direct response.
	onSend func(transactionID string)

	messagesErr   error
	messagesQueue []*messaging.RoomMessagesResponse
	messagesCalls []messaging.RoomMessagesOptions

	displayNames map[ref.UserID]string
	profileErr   error

	redacted []ref.EventID
	typing   []bool
}

var _ messaging.Session = (*fakeSession)(nil)

func newFakeSession() *fakeSession {
	return &fakeSession{
		userID:       ownUser,
		sentEventID:  ref.MustParseEventID("$confirmed:example.org"),
		displayNames: make(map[ref.UserID]string),
	}
}

func (f *fakeSession) UserID() ref.UserID { return f.userID }
func (f *fakeSession) Close() error       { return nil }

func (f *fakeSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	return f.userID, nil
}

func (f *fakeSession) SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content messaging.MessageContent) (ref.EventID, error) {
	f.sentTxns = append(f.sentTxns, transactionID)
	f.sentContent = append(f.sentContent, content)
	if f.onSend != nil {
		f.onSend(transactionID)
	}
	if f.sendErr != nil {
		return ref.EventID{}, f.sendErr
	}
	return f.sentEventID, nil
}

func (f *fakeSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, transactionID string, content any) (ref.EventID, error) {
	return f.sentEventID, nil
}

func (f *fakeSession) RedactEvent(ctx context.Context, roomID ref.RoomID, target ref.EventID, transactionID, reason string) (ref.EventID, error) {
	f.redacted = append(f.redacted, target)
	return f.sentEventID, nil
}

func (f *fakeSession) SendTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout int64) error {
	f.typing = append(f.typing, typing)
	return nil
}

func (f *fakeSession) RoomMessages(ctx context.Context, roomID ref.RoomID, options messaging.RoomMessagesOptions) (*messaging.RoomMessagesResponse, error) {
	f.messagesCalls = append(f.messagesCalls, options)
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	if len(f.messagesQueue) == 0 {
		return &messaging.RoomMessagesResponse{}, nil
	}
	response := f.messagesQueue[0]
	f.messagesQueue = f.messagesQueue[1:]
	return response, nil
}

func (f *fakeSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	return &messaging.SyncResponse{}, nil
}

func (f *fakeSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	return roomID, nil
}

func (f *fakeSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error { return nil }

func (f *fakeSession) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	return nil
}

func (f *fakeSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	return nil, nil
}

func (f *fakeSession) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error) {
	return nil, nil
}

func (f *fakeSession) GetDisplayName(ctx context.Context, userID ref.UserID) (string, error) {
	if f.profileErr != nil {
		return "", f.profileErr
	}
	return f.displayNames[userID], nil
}

func (f *fakeSession) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	return testRoomID, nil
}

func testConfig(fake *fakeSession, buffer display.Buffer) RoomConfig {
	return RoomConfig{
		RoomID:         testRoomID,
		OwnUserID:      ownUser,
		Session:        fake,
		Renderer:       render.NewRenderer(tui.DefaultTheme, "https://matrix.example.org"),
		Buffer:         buffer,
		LocalEcho:      true,
		RedactionStyle: RedactionNotice,
		BackfillLimit:  10,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:          clock.Fake(time.UnixMilli(1_000_000)),
	}
}

func newTestRoom(t *testing.T, fake *fakeSession) (*RoomSession, *display.LineBuffer) {
	t.Helper()
	buffer := display.NewLineBuffer()
	session, err := NewRoomSession(testConfig(fake, buffer))
	if err != nil {
		t.Fatalf("NewRoomSession: %v", err)
	}
	return session, buffer
}

func messageEvent(id string, sender ref.UserID, ts int64, body string) messaging.Event {
	return messaging.Event{
		EventID:        ref.MustParseEventID(id),
		Type:           ref.EventTypeMessage,
		Sender:         sender,
		OriginServerTS: ts,
		Content:        map[string]any{"msgtype": "m.text", "body": body},
	}
}

func editEvent(id string, sender ref.UserID, ts int64, target, newBody string) messaging.Event {
	return messaging.Event{
		EventID:        ref.MustParseEventID(id),
		Type:           ref.EventTypeMessage,
		Sender:         sender,
		OriginServerTS: ts,
		Content: map[string]any{
			"msgtype": "m.text",
			"body":    "* " + newBody,
			"m.new_content": map[string]any{
				"msgtype": "m.text",
				"body":    newBody,
			},
			"m.relates_to": map[string]any{
				"rel_type": "m.replace",
				"event_id": target,
			},
		},
	}
}

func redactionEvent(id string, sender ref.UserID, ts int64, target, reason string) messaging.Event {
	content := map[string]any{"redacts": target}
	if reason != "" {
		content["reason"] = reason
	}
	return messaging.Event{
		EventID:        ref.MustParseEventID(id),
		Type:           ref.EventTypeRedaction,
		Sender:         sender,
		OriginServerTS: ts,
		Content:        content,
	}
}

func memberEvent(id string, userID ref.UserID, ts int64, membership, displayName string) messaging.Event {
	stateKey := userID.String()
	content := map[string]any{"membership": membership}
	if displayName != "" {
		content["displayname"] = displayName
	}
	return messaging.Event{
		EventID:        ref.MustParseEventID(id),
		Type:           ref.EventTypeMember,
		Sender:         userID,
		OriginServerTS: ts,
		StateKey:       &stateKey,
		Content:        content,
	}
}

func bufferMessages(buffer *display.LineBuffer) []string {
	lines := buffer.Lines()
	messages := make([]string, len(lines))
	for i, line := range lines {
		messages[i] = line.Message
	}
	return messages
}
