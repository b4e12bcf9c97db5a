// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns Matrix events into displayable timeline lines.
//
// Rendering is a pure function of the event's identity, timestamp,
// sender, and content: the [Renderer] never touches the network or the
// display buffer. The timeline layer feeds it events and writes the
// resulting [RenderedEvent] lines into the room's buffer.
//
// Incoming message bodies get fenced code blocks syntax-highlighted
// with chroma. Outgoing messages can be converted from markdown to a
// Matrix formatted_body via [MarkdownToHTML]. Redaction helpers
// produce the replacement notice text and the combining-overlay
// strike-through used by the strikethrough redaction style.
package render
