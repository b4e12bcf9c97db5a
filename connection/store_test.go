// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parley-chat/parley/lib/ref"
)

func TestStoreFirstRun(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if store.DeviceID() != "" {
		t.Errorf("DeviceID() = %q, want empty on first run", store.DeviceID())
	}
	if store.NextBatch() != "" {
		t.Errorf("NextBatch() = %q, want empty on first run", store.NextBatch())
	}
	if len(store.Rooms()) != 0 {
		t.Errorf("Rooms() = %v, want empty", store.Rooms())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session")
	userID := ref.MustParseUserID("@me:example.org")
	roomID := ref.MustParseRoomID("!room:example.org")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	store.SetIdentity(userID, "DEVICE1")
	store.SetNextBatch("batch-42")
	store.SetRoomPrevBatch(roomID, "prev-7")
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore (reload): %v", err)
	}
	if reloaded.UserID() != userID {
		t.Errorf("UserID() = %v, want %v", reloaded.UserID(), userID)
	}
	if reloaded.DeviceID() != "DEVICE1" {
		t.Errorf("DeviceID() = %q", reloaded.DeviceID())
	}
	if reloaded.NextBatch() != "batch-42" {
		t.Errorf("NextBatch() = %q", reloaded.NextBatch())
	}
	if got := reloaded.RoomPrevBatch(roomID); got != "prev-7" {
		t.Errorf("RoomPrevBatch() = %q", got)
	}
	rooms := reloaded.Rooms()
	if len(rooms) != 1 || rooms[roomID] != "prev-7" {
		t.Errorf("Rooms() = %v", rooms)
	}
}

func TestStoreSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("store permissions = %o, want 600", perm)
	}
}

func TestStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	if err := os.WriteFile(path, []byte("not cbor at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(path); err == nil {
		t.Fatal("OpenStore should reject a corrupt store")
	}
}
