// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/parley-chat/parley/lib/ref"
)

// Message decodes the event content as m.room.message content. Returns
// false when the event is not a message or its content is missing the
// required msgtype/body fields. Malformed content is reported as
// "not a message" rather than an error: servers can relay events from
// arbitrary clients and a bad one must not break the timeline.
func (e Event) Message() (MessageContent, bool) {
	if e.Type != ref.EventTypeMessage {
		return MessageContent{}, false
	}

	raw, err := json.Marshal(e.Content)
	if err != nil {
		return MessageContent{}, false
	}
	var content MessageContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return MessageContent{}, false
	}
	if content.MsgType == "" {
		return MessageContent{}, false
	}
	return content, true
}

// EditTarget reports whether the event is a message edit (an m.replace
// relation with replacement content) and returns the target event ID
// and the replacement content. Events that carry the relation but no
// m.new_content are not edits.
func (e Event) EditTarget() (ref.EventID, MessageContent, bool) {
	content, ok := e.Message()
	if !ok {
		return ref.EventID{}, MessageContent{}, false
	}
	if content.RelatesTo == nil || content.RelatesTo.RelType != RelTypeReplace {
		return ref.EventID{}, MessageContent{}, false
	}
	if content.NewContent == nil || content.RelatesTo.EventID.IsZero() {
		return ref.EventID{}, MessageContent{}, false
	}
	return content.RelatesTo.EventID, *content.NewContent, true
}

// RedactsTarget returns the event ID an m.room.redaction event targets.
// Room versions before 11 carry the target in the top-level redacts
// field; v11 moved it into content. Both locations are checked, with
// the content field winning when present.
func (e Event) RedactsTarget() (ref.EventID, bool) {
	if e.Type != ref.EventTypeRedaction {
		return ref.EventID{}, false
	}
	if raw, ok := e.Content["redacts"].(string); ok {
		if target, err := ref.ParseEventID(raw); err == nil {
			return target, true
		}
	}
	if !e.Redacts.IsZero() {
		return e.Redacts, true
	}
	return ref.EventID{}, false
}

// RedactionReason returns the optional reason attached to a redaction.
func (e Event) RedactionReason() string {
	reason, _ := e.Content["reason"].(string)
	return reason
}

// TransactionID returns the transaction ID the server echoed back for
// events this device sent, or "" for everything else.
func (e Event) TransactionID() string {
	if e.Unsigned == nil {
		return ""
	}
	return e.Unsigned.TransactionID
}

// IsState reports whether the event is a state event.
func (e Event) IsState() bool {
	return e.StateKey != nil
}
