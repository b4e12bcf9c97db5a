// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/rivo/uniseg"
)

// combiningLongStrokeOverlay is U+0336, appended after each grapheme
// to overstrike redacted text.
const combiningLongStrokeOverlay = "̶"

// RedactionNotice builds the replacement text for a redacted message.
func RedactionNotice(redacterNick, reason string) string {
	if reason == "" {
		return fmt.Sprintf("<message redacted by %s>", redacterNick)
	}
	return fmt.Sprintf("<message redacted by %s, reason: %s>", redacterNick, reason)
}

// StrikeThrough overstrikes a rendered line for the strikethrough
// redaction style. ANSI styling is stripped first: interleaving the
// overlay with escape sequences would corrupt them.
func StrikeThrough(text string) string {
	plain := ansi.Strip(text)
	if plain == "" {
		return ""
	}

	var builder strings.Builder
	builder.Grow(len(plain) * 2)
	graphemes := uniseg.NewGraphemes(plain)
	for graphemes.Next() {
		builder.WriteString(graphemes.Str())
		builder.WriteString(combiningLongStrokeOverlay)
	}
	return builder.String()
}
