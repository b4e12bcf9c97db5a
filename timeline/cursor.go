// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "sync"

// Direction is the paging direction a cursor token applies to.
type Direction int

const (
	// DirectionBackwards is the normal backfill direction: the token
	// points at older history.
	DirectionBackwards Direction = iota

	// DirectionForward marks a token that must be re-fetched forward
	// once before backward paging can resume. Used right after a
	// session restore, where the persisted token predates events that
	// arrived while the client was offline.
	DirectionForward
)

// PaginationState is a paging cursor: an opaque continuation token
// plus the direction to fetch it in.
type PaginationState struct {
	Direction Direction
	Token     string
}

// Backwards returns a normal backfill cursor.
func Backwards(token string) PaginationState {
	return PaginationState{Direction: DirectionBackwards, Token: token}
}

// Forward returns a one-time forward reconciliation cursor.
func Forward(token string) PaginationState {
	return PaginationState{Direction: DirectionForward, Token: token}
}

// Cursor holds a room's pagination state. Absence means "no more
// history" or "not yet established"; both are terminal for paging
// until the cursor is stored again. The state is read once at request
// start and written exactly once at request completion.
type Cursor struct {
	mu    sync.Mutex
	state PaginationState
	set   bool
}

// Load returns the current state. ok is false when no cursor is set.
func (c *Cursor) Load() (state PaginationState, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.set
}

// Store replaces the cursor state.
func (c *Cursor) Store(state PaginationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.set = true
}

// Clear unsets the cursor: history is exhausted.
func (c *Cursor) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = PaginationState{}
	c.set = false
}
