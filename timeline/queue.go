// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"sync"

	"github.com/parley-chat/parley/messaging"
)

// PendingEchoQueue tracks messages sent by this client but not yet
// confirmed by the server, keyed by transaction ID. An entry exists
// from the moment a send is initiated until the server confirms the
// event or the send fails; Remove is the single synchronization point
// between the send path and the confirmation path, which may run in
// either order.
type PendingEchoQueue struct {
	mu      sync.Mutex
	entries map[string]echoEntry
}

type echoEntry struct {
	hasEcho bool
	content messaging.MessageContent
}

// NewPendingEchoQueue creates an empty queue.
func NewPendingEchoQueue() *PendingEchoQueue {
	return &PendingEchoQueue{entries: make(map[string]echoEntry)}
}

// Add records a pending send that produced no local echo line.
func (q *PendingEchoQueue) Add(transactionID string, content messaging.MessageContent) {
	q.add(transactionID, echoEntry{hasEcho: false, content: content})
}

// AddWithEcho records a pending send whose local echo line is already
// in the buffer, tagged with the transaction ID.
func (q *PendingEchoQueue) AddWithEcho(transactionID string, content messaging.MessageContent) {
	q.add(transactionID, echoEntry{hasEcho: true, content: content})
}

func (q *PendingEchoQueue) add(transactionID string, entry echoEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[transactionID] = entry
}

// Remove takes the entry for a transaction ID out of the queue. ok is
// false when no entry exists, which is not an error: the send and its
// confirmation race, and whichever runs second finds the queue empty.
func (q *PendingEchoQueue) Remove(transactionID string) (content messaging.MessageContent, hasEcho, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[transactionID]
	if ok {
		delete(q.entries, transactionID)
	}
	return entry.content, entry.hasEcho, ok
}

// Contains reports whether the queue holds an entry for the
// transaction ID without removing it.
func (q *PendingEchoQueue) Contains(transactionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[transactionID]
	return ok
}

// Len returns the number of pending entries.
func (q *PendingEchoQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
