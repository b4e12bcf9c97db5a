// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/parley-chat/parley/lib/ref"
)

// storeData is the on-disk session state. The access token is never
// persisted; a restart re-authenticates and only reuses the device ID
// so the server sees one device per installation.
type storeData struct {
	UserID        string            `cbor:"user_id"`
	DeviceID      string            `cbor:"device_id"`
	NextBatch     string            `cbor:"next_batch"`
	RoomPrevBatch map[string]string `cbor:"room_prev_batch"`
}

// Store persists session state (device ID, sync position, per-room
// historical tokens) across restarts. Safe for concurrent use.
type Store struct {
	path string

	mu   sync.Mutex
	data storeData
}

// OpenStore loads the session store at path, or starts an empty one
// when the file does not exist yet.
func OpenStore(path string) (*Store, error) {
	store := &Store{
		path: path,
		data: storeData{RoomPrevBatch: make(map[string]string)},
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connection: reading session store: %w", err)
	}
	if err := cbor.Unmarshal(raw, &store.data); err != nil {
		return nil, fmt.Errorf("connection: decoding session store %s: %w", path, err)
	}
	if store.data.RoomPrevBatch == nil {
		store.data.RoomPrevBatch = make(map[string]string)
	}
	return store, nil
}

// Save writes the store to disk. The write goes through a temporary
// file and a rename so a crash never leaves a truncated store.
func (s *Store) Save() error {
	s.mu.Lock()
	raw, err := cbor.Marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("connection: encoding session store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("connection: creating store directory: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("connection: writing session store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("connection: replacing session store: %w", err)
	}
	return nil
}

// DeviceID returns the persisted device ID, or "" on first run.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeviceID
}

// SetIdentity records the authenticated identity.
func (s *Store) SetIdentity(userID ref.UserID, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UserID = userID.String()
	s.data.DeviceID = deviceID
}

// UserID returns the persisted user ID, or the zero value when none
// is stored or the stored value no longer parses.
func (s *Store) UserID() ref.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, err := ref.ParseUserID(s.data.UserID)
	if err != nil {
		return ref.UserID{}
	}
	return userID
}

// NextBatch returns the persisted sync position, or "" for an initial
// sync.
func (s *Store) NextBatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.NextBatch
}

// SetNextBatch records the sync position.
func (s *Store) SetNextBatch(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.NextBatch = token
}

// SetRoomPrevBatch records a room's latest historical token.
func (s *Store) SetRoomPrevBatch(roomID ref.RoomID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.RoomPrevBatch[roomID.String()] = token
}

// RoomPrevBatch returns a room's persisted historical token, or "".
func (s *Store) RoomPrevBatch(roomID ref.RoomID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.RoomPrevBatch[roomID.String()]
}

// Rooms returns the persisted per-room historical tokens. Stored
// room IDs that no longer parse are skipped.
func (s *Store) Rooms() map[ref.RoomID]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make(map[ref.RoomID]string, len(s.data.RoomPrevBatch))
	for raw, token := range s.data.RoomPrevBatch {
		roomID, err := ref.ParseRoomID(raw)
		if err != nil {
			continue
		}
		rooms[roomID] = token
	}
	return rooms
}
