// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/testutil"
	"github.com/parley-chat/parley/messaging"
)

var (
	testRoomID = ref.MustParseRoomID("!room:example.org")
	testUserID = ref.MustParseUserID("@me:example.org")
)

// syncFake is a messaging.Session serving queued /sync responses, then
// blocking until the context is cancelled.
type syncFake struct {
	mu        sync.Mutex
	responses []*messaging.SyncResponse
	errs      []error
	calls     []messaging.SyncOptions
	closed    bool
}

var _ messaging.Session = (*syncFake)(nil)

func (f *syncFake) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, options)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.responses) > 0 {
		response := f.responses[0]
		f.responses = f.responses[1:]
		f.mu.Unlock()
		return response, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

// callOptions returns a snapshot of the recorded /sync calls.
func (f *syncFake) callOptions() []messaging.SyncOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]messaging.SyncOptions, len(f.calls))
	copy(calls, f.calls)
	return calls
}

func (f *syncFake) UserID() ref.UserID { return testUserID }
func (f *syncFake) Close() error       { f.closed = true; return nil }
func (f *syncFake) DeviceID() string   { return "DEV1" }

func (f *syncFake) WhoAmI(ctx context.Context) (ref.UserID, error) { return testUserID, nil }

func (f *syncFake) SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content messaging.MessageContent) (ref.EventID, error) {
	return ref.EventID{}, nil
}

func (f *syncFake) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, transactionID string, content any) (ref.EventID, error) {
	return ref.EventID{}, nil
}

func (f *syncFake) RedactEvent(ctx context.Context, roomID ref.RoomID, target ref.EventID, transactionID, reason string) (ref.EventID, error) {
	return ref.EventID{}, nil
}

func (f *syncFake) SendTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout int64) error {
	return nil
}

func (f *syncFake) RoomMessages(ctx context.Context, roomID ref.RoomID, options messaging.RoomMessagesOptions) (*messaging.RoomMessagesResponse, error) {
	return &messaging.RoomMessagesResponse{}, nil
}

func (f *syncFake) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	return roomID, nil
}

func (f *syncFake) LeaveRoom(ctx context.Context, roomID ref.RoomID) error { return nil }

func (f *syncFake) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	return nil
}

func (f *syncFake) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) { return nil, nil }

func (f *syncFake) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error) {
	return nil, nil
}

func (f *syncFake) GetDisplayName(ctx context.Context, userID ref.UserID) (string, error) {
	return "", nil
}

func (f *syncFake) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	return testRoomID, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return store
}

func receive(t *testing.T, connection *Connection) Envelope {
	t.Helper()
	return testutil.RequireReceive(t, connection.Events(), 5*time.Second, "waiting for envelope")
}

func TestConnectionLoginComplete(t *testing.T) {
	fake := &syncFake{}
	connection := NewWithSession(fake, newTestStore(t), "", nil)
	defer connection.Close()

	login, ok := receive(t, connection).(LoginComplete)
	if !ok {
		t.Fatal("first envelope should be LoginComplete")
	}
	if login.UserID != testUserID || login.DeviceID != "DEV1" {
		t.Errorf("login = %+v", login)
	}
}

func TestConnectionRestoredRooms(t *testing.T) {
	store := newTestStore(t)
	store.SetRoomPrevBatch(testRoomID, "prev-1")

	connection := NewWithSession(&syncFake{}, store, "", nil)
	defer connection.Close()

	receive(t, connection) // LoginComplete
	restored, ok := receive(t, connection).(RestoredRoom)
	if !ok {
		t.Fatal("stored rooms should be announced after login")
	}
	if restored.RoomID != testRoomID || restored.PrevBatch != "prev-1" {
		t.Errorf("restored = %+v", restored)
	}
}

func TestConnectionClassifiesSync(t *testing.T) {
	stateKey := testUserID.String()
	emptyKey := ""
	fake := &syncFake{
		responses: []*messaging.SyncResponse{{
			NextBatch: "batch-1",
			Rooms: messaging.RoomsSection{
				Join: map[ref.RoomID]messaging.JoinedRoom{
					testRoomID: {
						State: messaging.StateSection{Events: []messaging.Event{
							{
								EventID:  ref.MustParseEventID("$topic:example.org"),
								Type:     ref.EventTypeTopic,
								Sender:   testUserID,
								StateKey: &emptyKey,
								Content:  map[string]any{"topic": "hello"},
							},
							{
								EventID:  ref.MustParseEventID("$member:example.org"),
								Type:     ref.EventTypeMember,
								Sender:   testUserID,
								StateKey: &stateKey,
								Content:  map[string]any{"membership": "join"},
							},
						}},
						Timeline: messaging.TimelineSection{
							PrevBatch: "prev-2",
							Events: []messaging.Event{{
								EventID: ref.MustParseEventID("$msg:example.org"),
								Type:    ref.EventTypeMessage,
								Sender:  testUserID,
								Content: map[string]any{"msgtype": "m.text", "body": "hi"},
							}},
						},
						Ephemeral: messaging.EphemeralSection{Events: []messaging.Event{{
							Type:    ref.EventTypeTyping,
							Content: map[string]any{"user_ids": []any{testUserID.String(), 42}},
						}}},
					},
				},
			},
		}},
	}
	store := newTestStore(t)
	connection := NewWithSession(fake, store, "", nil)
	defer connection.Close()

	receive(t, connection) // LoginComplete

	advance, ok := receive(t, connection).(RoomAdvance)
	if !ok || advance.PrevBatch != "prev-2" {
		t.Fatalf("want RoomAdvance(prev-2) before timeline events, got %+v", advance)
	}

	if state, ok := receive(t, connection).(RoomState); !ok || state.Event.Type != ref.EventTypeTopic {
		t.Fatalf("want RoomState(topic), got %+v", state)
	}
	membership, ok := receive(t, connection).(Membership)
	if !ok || !membership.IsState {
		t.Fatalf("want Membership(IsState=true), got %+v", membership)
	}
	if timeline, ok := receive(t, connection).(RoomTimeline); !ok || timeline.Event.EventID.String() != "$msg:example.org" {
		t.Fatalf("want RoomTimeline($msg), got %+v", timeline)
	}
	typing, ok := receive(t, connection).(RoomTyping)
	if !ok {
		t.Fatal("want RoomTyping")
	}
	if len(typing.UserIDs) != 1 || typing.UserIDs[0] != testUserID {
		t.Errorf("typing users = %v: malformed entries are skipped", typing.UserIDs)
	}

	// The sync position and the room's historical token are persisted.
	deadline := time.Now().Add(5 * time.Second)
	for store.NextBatch() != "batch-1" {
		if time.Now().After(deadline) {
			t.Fatalf("NextBatch() = %q, want batch-1", store.NextBatch())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.RoomPrevBatch(testRoomID); got != "prev-2" {
		t.Errorf("RoomPrevBatch() = %q, want prev-2", got)
	}
}

func TestConnectionMembershipFromTimeline(t *testing.T) {
	stateKey := testUserID.String()
	fake := &syncFake{
		responses: []*messaging.SyncResponse{{
			NextBatch: "batch-1",
			Rooms: messaging.RoomsSection{
				Join: map[ref.RoomID]messaging.JoinedRoom{
					testRoomID: {
						Timeline: messaging.TimelineSection{Events: []messaging.Event{{
							EventID:  ref.MustParseEventID("$m:example.org"),
							Type:     ref.EventTypeMember,
							Sender:   testUserID,
							StateKey: &stateKey,
							Content:  map[string]any{"membership": "join"},
						}}},
					},
				},
			},
		}},
	}
	connection := NewWithSession(fake, newTestStore(t), "", nil)
	defer connection.Close()

	receive(t, connection) // LoginComplete
	membership, ok := receive(t, connection).(Membership)
	if !ok {
		t.Fatal("timeline member event should arrive as Membership")
	}
	if membership.IsState {
		t.Error("timeline membership must have IsState=false")
	}
}

func TestConnectionTransportError(t *testing.T) {
	failure := errors.New("connection reset by peer")
	fake := &syncFake{
		// One more error than the retry budget, so the loop reports.
		errs: []error{failure, failure, failure, failure, failure, failure},
	}
	connection := NewWithSession(fake, newTestStore(t), "", nil)
	defer connection.Close()

	receive(t, connection) // LoginComplete
	transportError, ok := receive(t, connection).(TransportError)
	if !ok {
		t.Fatal("exhausted retries should surface a TransportError")
	}
	if transportError.Message == "" {
		t.Error("TransportError should carry the failure text")
	}

	// Retries after the first failure use the short server timeout.
	calls := fake.callOptions()
	if len(calls) < 2 || calls[1].Timeout != retryTimeout {
		t.Errorf("retry timeouts = %+v, want %d on the second call", calls, retryTimeout)
	}
}

func TestConnectionCloseEndsStream(t *testing.T) {
	fake := &syncFake{}
	connection := NewWithSession(fake, newTestStore(t), "", nil)

	receive(t, connection) // LoginComplete
	if err := connection.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The channel closes; the foreground receive loop exits silently.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-connection.Events():
			if !open {
				if !fake.closed {
					t.Error("Close should close the transport session")
				}
				return
			}
		case <-deadline:
			t.Fatal("envelope channel should close on Close")
		}
	}
}

func TestDefaultFilter(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(DefaultFilter(25)), &decoded); err != nil {
		t.Fatalf("filter is not valid JSON: %v", err)
	}
	room, ok := decoded["room"].(map[string]any)
	if !ok {
		t.Fatal("filter should carry a room section")
	}
	timeline, ok := room["timeline"].(map[string]any)
	if !ok || timeline["limit"] != float64(25) {
		t.Errorf("timeline section = %v", room["timeline"])
	}
	if _, ok := decoded["presence"]; !ok {
		t.Error("presence suppression missing")
	}
}
