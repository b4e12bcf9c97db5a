// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "strings"

// Line is one rendered timeline line. Lines are value types: mutation
// happens by reading a line, changing fields, and writing it back with
// Buffer.SetLine.
type Line struct {
	// Date is the event's origin timestamp in milliseconds. Sorting
	// and edit timestamps operate on this field.
	Date int64

	// DatePrinted is the local insertion timestamp in milliseconds.
	// It breaks ties between lines with equal Date. Re-sorts move it
	// with the rest of the line content, so a tie keeps resolving in
	// arrival order.
	DatePrinted int64

	// Tags carry line identity and routing metadata: the event ID,
	// the sender, self/echo markers, and mutation markers.
	Tags []string

	// Prefix is the rendered sender column.
	Prefix string

	// Message is the rendered body for this line.
	Message string
}

// Well-known line tags.
const (
	// TagSelf marks lines for messages sent by the local user.
	TagSelf = "self_msg"

	// TagEcho marks unconfirmed local echo lines.
	TagEcho = "local_echo"

	// TagRedacted marks lines already rewritten by a redaction.
	// Applying a second redaction to a tagged line is a no-op.
	TagRedacted = "matrix_redacted"

	// TagFailed marks echo lines whose send was rejected by the
	// server.
	TagFailed = "send_failed"
)

// Tag value prefixes. A line's event identity and sender travel in its
// tags so mutation can find lines without a side index.
const (
	eventIDTagPrefix     = "matrix_id_"
	senderTagPrefix      = "matrix_sender_"
	transactionTagPrefix = "matrix_txn_"
)

// EventIDTag builds the tag carrying a line's event ID.
func EventIDTag(eventID string) string { return eventIDTagPrefix + eventID }

// SenderTag builds the tag carrying a line's sender user ID.
func SenderTag(userID string) string { return senderTagPrefix + userID }

// TransactionTag builds the tag tying a local echo line to its
// transaction ID.
func TransactionTag(transactionID string) string {
	return transactionTagPrefix + transactionID
}

// HasTag reports whether the line carries the exact tag.
func (l Line) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EventID returns the event ID carried in the line's tags, or "".
func (l Line) EventID() string { return l.tagValue(eventIDTagPrefix) }

// Sender returns the sender user ID carried in the line's tags, or "".
func (l Line) Sender() string { return l.tagValue(senderTagPrefix) }

// TransactionID returns the transaction ID carried in the line's tags,
// or "" for lines that are not local echoes.
func (l Line) TransactionID() string { return l.tagValue(transactionTagPrefix) }

func (l Line) tagValue(prefix string) string {
	for _, t := range l.Tags {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimPrefix(t, prefix)
		}
	}
	return ""
}

// WithoutTag returns a copy of the tag slice with the given tag
// removed.
func WithoutTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
