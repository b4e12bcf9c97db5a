// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"testing"

	"github.com/parley-chat/parley/messaging"
)

func TestQueueAddRemove(t *testing.T) {
	queue := NewPendingEchoQueue()
	queue.AddWithEcho("txn-1", messaging.NewTextMessage("hi"))

	if !queue.Contains("txn-1") {
		t.Fatal("queue should contain txn-1")
	}
	if queue.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", queue.Len())
	}

	content, hasEcho, ok := queue.Remove("txn-1")
	if !ok {
		t.Fatal("Remove should find txn-1")
	}
	if !hasEcho {
		t.Error("entry should record its local echo")
	}
	if content.Body != "hi" {
		t.Errorf("content body = %q, want %q", content.Body, "hi")
	}
	if queue.Contains("txn-1") {
		t.Error("entry should be gone after Remove")
	}
}

func TestQueueRemoveIsExactlyOnce(t *testing.T) {
	queue := NewPendingEchoQueue()
	queue.Add("txn-1", messaging.NewTextMessage("hi"))

	if _, _, ok := queue.Remove("txn-1"); !ok {
		t.Fatal("first Remove should succeed")
	}
	if _, _, ok := queue.Remove("txn-1"); ok {
		t.Fatal("second Remove must report a missing entry")
	}
}

func TestQueueRemoveUnknown(t *testing.T) {
	queue := NewPendingEchoQueue()
	if _, _, ok := queue.Remove("never-added"); ok {
		t.Fatal("Remove of unknown transaction should report false")
	}
}

func TestQueueWithoutEcho(t *testing.T) {
	queue := NewPendingEchoQueue()
	queue.Add("txn-1", messaging.NewTextMessage("hi"))

	_, hasEcho, ok := queue.Remove("txn-1")
	if !ok || hasEcho {
		t.Fatalf("Remove = (hasEcho=%v, ok=%v), want (false, true)", hasEcho, ok)
	}
}
