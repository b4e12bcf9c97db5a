// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"sync"
	"sync/atomic"
)

// SingleFlightGuard serializes logical pagination requests: at most
// one outstanding history fetch per room. Acquisition is non-blocking
// and non-queuing; a second request while one is in flight is dropped,
// not deferred.
//
// The busy flag is readable independently of the lock so the UI can
// show a "room busy" indicator without competing for the guard.
type SingleFlightGuard struct {
	mu   sync.Mutex
	busy atomic.Bool
}

// TryAcquire attempts to take the guard. Returns false immediately
// when it is already held.
func (g *SingleFlightGuard) TryAcquire() bool {
	if !g.mu.TryLock() {
		return false
	}
	g.busy.Store(true)
	return true
}

// Release frees the guard. Call only after a successful TryAcquire.
func (g *SingleFlightGuard) Release() {
	g.busy.Store(false)
	g.mu.Unlock()
}

// Busy reports whether the guard is currently held. Never blocks.
func (g *SingleFlightGuard) Busy() bool {
	return g.busy.Load()
}
