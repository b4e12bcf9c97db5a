// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
)

func TestDispatchMessageAppends(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "hello"))

	if buffer.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", buffer.Len())
	}
	line, _ := buffer.Line(0)
	if line.Message != "hello" {
		t.Errorf("message = %q", line.Message)
	}
	if line.EventID() != "$a:example.org" {
		t.Errorf("event ID tag = %q", line.EventID())
	}
	if line.Sender() != aliceUser.String() {
		t.Errorf("sender tag = %q", line.Sender())
	}
	if line.Date != 100 {
		t.Errorf("date = %d, want 100", line.Date)
	}
}

func TestDispatchMalformedSkipped(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	// Missing msgtype.
	session.HandleSyncRoomEvent(ctx, messaging.Event{
		EventID: ref.MustParseEventID("$bad:example.org"),
		Type:    ref.EventTypeMessage,
		Sender:  aliceUser,
		Content: map[string]any{"body": "no msgtype"},
	})
	// Unknown timeline event type.
	session.HandleSyncRoomEvent(ctx, messaging.Event{
		EventID: ref.MustParseEventID("$sticker:example.org"),
		Type:    ref.EventType("m.sticker"),
		Sender:  aliceUser,
		Content: map[string]any{"body": "sticker"},
	})

	if buffer.Len() != 0 {
		t.Fatalf("Len() = %d, want 0: malformed events must be skipped silently", buffer.Len())
	}
}

func TestDispatchUnresolvableSenderSkipped(t *testing.T) {
	fake := newFakeSession()
	fake.profileErr = errors.New("connection refused")
	session, buffer := newTestRoom(t, fake)

	session.HandleSyncRoomEvent(context.Background(), messageEvent("$a:example.org", aliceUser, 100, "hi"))

	if buffer.Len() != 0 {
		t.Fatalf("Len() = %d, want 0: event with unresolvable sender is dropped", buffer.Len())
	}
}

func TestDispatchRedactionNoticeStyle(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "spam spam"))
	session.HandleSyncRoomEvent(ctx, redactionEvent("$r:example.org", eveUser, 200, "$a:example.org", "spam"))

	line, _ := buffer.Line(0)
	want := "spam spam <message redacted by eve, reason: spam>"
	if line.Message != want {
		t.Errorf("message = %q, want %q", line.Message, want)
	}
	if !line.HasTag(display.TagRedacted) {
		t.Error("line should carry the redacted tag")
	}
}

func TestDispatchRedactionIdempotent(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "original"))
	session.HandleSyncRoomEvent(ctx, redactionEvent("$r1:example.org", eveUser, 200, "$a:example.org", ""))
	session.HandleSyncRoomEvent(ctx, redactionEvent("$r2:example.org", eveUser, 300, "$a:example.org", ""))

	line, _ := buffer.Line(0)
	if got := strings.Count(line.Message, "redacted by"); got != 1 {
		t.Errorf("notice appears %d times, want exactly 1: %q", got, line.Message)
	}
}

func TestDispatchRedactionUnknownTarget(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "keep me"))
	session.HandleSyncRoomEvent(ctx, redactionEvent("$r:example.org", eveUser, 200, "$elsewhere:example.org", ""))

	line, _ := buffer.Line(0)
	if line.Message != "keep me" {
		t.Errorf("unrelated line changed: %q", line.Message)
	}
}

func TestDispatchEditRewritesInPlace(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "helo"))
	session.HandleSyncRoomEvent(ctx, editEvent("$e:example.org", aliceUser, 200, "$a:example.org", "hello"))

	if buffer.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", buffer.Len())
	}
	line, _ := buffer.Line(0)
	if line.Message != "hello" {
		t.Errorf("message = %q, want %q", line.Message, "hello")
	}
	if line.EventID() != "$a:example.org" {
		t.Errorf("edited line keeps the original event ID, got %q", line.EventID())
	}
}

func TestDispatchEditRejectsSpoofedSender(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "genuine"))
	session.HandleSyncRoomEvent(ctx, editEvent("$e:example.org", eveUser, 200, "$a:example.org", "forged"))

	line, _ := buffer.Line(0)
	if line.Message != "genuine" {
		t.Errorf("spoofed edit must leave the timeline unchanged, got %q", line.Message)
	}
}

func TestDispatchEditGrowsAndResorts(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "short"))
	session.HandleSyncRoomEvent(ctx, messageEvent("$b:example.org", aliceUser, 200, "later"))
	session.HandleSyncRoomEvent(ctx, editEvent("$e:example.org", aliceUser, 300, "$a:example.org", "one\ntwo"))

	got := bufferMessages(buffer)
	want := []string{"one", "two", "later"}
	if len(got) != len(want) {
		t.Fatalf("messages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	// The surplus line carries the original event's identity, so a
	// later redaction of $a finds both lines.
	second, _ := buffer.Line(1)
	if second.EventID() != "$a:example.org" {
		t.Errorf("surplus line event ID = %q", second.EventID())
	}

	// Timestamps are ascending after the re-sort.
	for i := 1; i < buffer.Len(); i++ {
		previous, _ := buffer.Line(i - 1)
		current, _ := buffer.Line(i)
		if previous.Date > current.Date {
			t.Errorf("lines %d..%d out of order: %d > %d", i-1, i, previous.Date, current.Date)
		}
	}
}

func TestDispatchEditShrinksByBlanking(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "one\ntwo"))
	session.HandleSyncRoomEvent(ctx, editEvent("$e:example.org", aliceUser, 200, "$a:example.org", "only"))

	got := bufferMessages(buffer)
	want := []string{"only", ""}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("messages = %v, want %v", got, want)
	}
}

func TestDispatchEditUnknownTarget(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, editEvent("$e:example.org", aliceUser, 200, "$unseen:example.org", "new"))

	if buffer.Len() != 0 {
		t.Fatalf("Len() = %d, want 0: edit for an event outside the window is a no-op", buffer.Len())
	}
}

func TestDispatchStateEvents(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	stateKey := ""

	name := messaging.Event{
		EventID:  ref.MustParseEventID("$n:example.org"),
		Type:     ref.EventTypeName,
		Sender:   aliceUser,
		StateKey: &stateKey,
		Content:  map[string]any{"name": "Project Room"},
	}
	topic := messaging.Event{
		EventID:  ref.MustParseEventID("$t:example.org"),
		Type:     ref.EventTypeTopic,
		Sender:   aliceUser,
		StateKey: &stateKey,
		Content:  map[string]any{"topic": "All things project"},
	}
	alias := messaging.Event{
		EventID:  ref.MustParseEventID("$al:example.org"),
		Type:     ref.EventTypeCanonicalAlias,
		Sender:   aliceUser,
		StateKey: &stateKey,
		Content:  map[string]any{"alias": "#project:example.org"},
	}

	session.HandleStateEvent(name)
	session.HandleStateEvent(topic)
	session.HandleStateEvent(alias)

	if got := buffer.ShortName(); got != "Project Room" {
		t.Errorf("short name = %q", got)
	}
	if got := buffer.Title(); got != "All things project" {
		t.Errorf("title = %q", got)
	}
	if got := buffer.LocalVar("alias"); got != "#project:example.org" {
		t.Errorf("alias = %q", got)
	}
	if buffer.Len() != 0 {
		t.Errorf("state events must not produce timeline lines, got %d", buffer.Len())
	}
}

func TestDispatchMembershipVisibility(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	// Initial state block: roster updated, no line.
	session.HandleStateEvent(memberEvent("$m1:example.org", aliceUser, 100, "join", "Alice"))
	if buffer.Len() != 0 {
		t.Fatalf("initial-state membership produced %d lines", buffer.Len())
	}

	// Live timeline: roster updated and a join line printed.
	session.HandleSyncRoomEvent(ctx, memberEvent("$m2:example.org", eveUser, 200, "join", "Eve"))
	if buffer.Len() != 1 {
		t.Fatalf("live membership produced %d lines, want 1", buffer.Len())
	}
	line, _ := buffer.Line(0)
	if !strings.Contains(line.Message, "has joined") {
		t.Errorf("join line = %q", line.Message)
	}
	if session.Roster().Size() != 2 {
		t.Errorf("roster size = %d, want 2", session.Roster().Size())
	}
}

func TestDispatchHistoricalEditSuppressed(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleRoomEvent(ctx, editEvent("$e:example.org", aliceUser, 100, "$old:example.org", "new"))

	if buffer.Len() != 0 {
		t.Fatalf("historical edit must be suppressed entirely, got %d lines", buffer.Len())
	}
}

func TestDispatchHistoricalRedactionAndStateNoOp(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "live"))
	session.HandleRoomEvent(ctx, redactionEvent("$r:example.org", eveUser, 50, "$a:example.org", ""))
	session.HandleRoomEvent(ctx, memberEvent("$m:example.org", eveUser, 50, "join", "Eve"))

	if buffer.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", buffer.Len())
	}
	line, _ := buffer.Line(0)
	if line.Message != "live" {
		t.Errorf("historical redaction must not touch the timeline: %q", line.Message)
	}
}

func TestDispatchHistoricalIgnoresEchoQueue(t *testing.T) {
	session, buffer := newTestRoom(t, newFakeSession())
	ctx := context.Background()
	session.echoes.AddWithEcho("txn-1", messaging.NewTextMessage("mine"))

	// A historical event carrying a matching transaction ID is an
	// already-settled past event, not a confirmation.
	event := messageEvent("$h:example.org", ownUser, 100, "mine")
	event.Unsigned = &messaging.EventUnsigned{TransactionID: "txn-1"}
	session.HandleRoomEvent(ctx, event)

	if !session.echoes.Contains("txn-1") {
		t.Error("historical events must never consume echo queue entries")
	}
	if buffer.Len() != 1 {
		t.Errorf("Len() = %d, want 1: historical event rendered normally", buffer.Len())
	}
}

func TestDispatchCursorReseed(t *testing.T) {
	fake := newFakeSession()
	session, _ := newTestRoom(t, fake)
	ctx := context.Background()

	session.Advance("prev-batch-1")
	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "hi"))

	state, ok := session.cursor.Load()
	if !ok {
		t.Fatal("cursor should be seeded from the last known prev_batch")
	}
	if state.Direction != DirectionBackwards || state.Token != "prev-batch-1" {
		t.Errorf("cursor = %+v, want Backwards(prev-batch-1)", state)
	}
}

func TestDispatchReseedKeepsForwardCursor(t *testing.T) {
	session, _ := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.Restore("restored-token")
	session.Advance("prev-batch-1")
	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "hi"))

	state, _ := session.cursor.Load()
	if state.Direction != DirectionForward || state.Token != "restored-token" {
		t.Errorf("cursor = %+v, want the restore's Forward cursor untouched", state)
	}
}

func TestDispatchNoReseedWhenLinesExist(t *testing.T) {
	session, _ := newTestRoom(t, newFakeSession())
	ctx := context.Background()

	session.HandleSyncRoomEvent(ctx, messageEvent("$a:example.org", aliceUser, 100, "hi"))
	session.Advance("prev-batch-2")
	session.HandleSyncRoomEvent(ctx, messageEvent("$b:example.org", aliceUser, 200, "again"))

	if _, ok := session.cursor.Load(); ok {
		t.Error("cursor must not be reseeded while the timeline has lines")
	}
}
