// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "sync"

// Buffer is the display surface a room session writes to. The session
// holds the buffer weakly: every method on the session tolerates a nil
// Buffer, since the UI may close a room's view while its events are
// still flowing.
type Buffer interface {
	// AppendLine adds a line at the end of the buffer.
	AppendLine(line Line)

	// Len returns the number of lines.
	Len() int

	// Line returns the line at index (0 = oldest). ok is false when
	// the index is out of range.
	Line(index int) (line Line, ok bool)

	// SetLine overwrites the line at index in place. Returns false
	// when the index is out of range.
	SetLine(index int, line Line) bool

	// SetTitle sets the buffer title (the room topic).
	SetTitle(title string)

	// SetShortName sets the buffer's short name (the room display
	// name).
	SetShortName(name string)

	// SetLocalVar sets a named buffer variable (e.g. the room alias
	// or the typing-notice line).
	SetLocalVar(key, value string)
}

// LineBuffer is an in-memory Buffer guarded by an RWMutex. The
// envelope-loop goroutine appends and mutates lines while the TUI
// goroutine reads snapshots.
type LineBuffer struct {
	mu        sync.RWMutex
	lines     []Line
	title     string
	shortName string
	localVars map[string]string
}

// NewLineBuffer creates an empty LineBuffer.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{
		localVars: make(map[string]string),
	}
}

var _ Buffer = (*LineBuffer)(nil)

// AppendLine adds a line at the end of the buffer.
func (b *LineBuffer) AppendLine(line Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
}

// Len returns the number of lines.
func (b *LineBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Line returns the line at index (0 = oldest).
func (b *LineBuffer) Line(index int) (Line, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if index < 0 || index >= len(b.lines) {
		return Line{}, false
	}
	return b.lines[index], true
}

// SetLine overwrites the line at index in place.
func (b *LineBuffer) SetLine(index int, line Line) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.lines) {
		return false
	}
	b.lines[index] = line
	return true
}

// Lines returns a snapshot copy of all lines, oldest first.
func (b *LineBuffer) Lines() []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot := make([]Line, len(b.lines))
	copy(snapshot, b.lines)
	return snapshot
}

// SetTitle sets the buffer title.
func (b *LineBuffer) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
}

// Title returns the buffer title.
func (b *LineBuffer) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

// SetShortName sets the buffer's short name.
func (b *LineBuffer) SetShortName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shortName = name
}

// ShortName returns the buffer's short name.
func (b *LineBuffer) ShortName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shortName
}

// SetLocalVar sets a named buffer variable.
func (b *LineBuffer) SetLocalVar(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.localVars[key] = value
}

// LocalVar returns a named buffer variable, or "".
func (b *LineBuffer) LocalVar(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.localVars[key]
}
