// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette and visual properties for Parley's
// terminal UI. All colors use lipgloss ANSI 256-color codes for broad
// terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row (room list, member list).
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Nick colors: senders are hashed into this palette so a user
	// keeps a stable color across sessions.
	NickColors []lipgloss.Color

	// Own messages and local echoes.
	OwnNick  lipgloss.Color
	EchoText lipgloss.Color

	// Event markers.
	RedactedText lipgloss.Color
	EditedMarker lipgloss.Color
	FailedMarker lipgloss.Color
	NoticeText   lipgloss.Color
	EmoteText    lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	BusyIndicator    lipgloss.Color

	// Activity accents: background tint for rooms with recent
	// traffic. ActivityMessage is used for ordinary messages,
	// ActivityMention for messages that mention the user.
	ActivityMessage lipgloss.Color
	ActivityMention lipgloss.Color
}

// NickColor returns the stable palette color for a sender. The sender
// string is hashed so the same user ID always maps to the same color.
func (theme Theme) NickColor(sender string) lipgloss.Color {
	if len(theme.NickColors) == 0 {
		return theme.NormalText
	}
	hash := fnv.New32a()
	hash.Write([]byte(sender))
	return theme.NickColors[int(hash.Sum32())%len(theme.NickColors)]
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed for
// 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	NickColors: []lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("114"), // green
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("220"), // amber
		lipgloss.Color("168"), // pink
		lipgloss.Color("80"),  // cyan
		lipgloss.Color("107"), // olive
	},

	OwnNick:  lipgloss.Color("255"),
	EchoText: lipgloss.Color("245"), // dim until the server confirms

	RedactedText: lipgloss.Color("240"),
	EditedMarker: lipgloss.Color("245"),
	FailedMarker: lipgloss.Color("196"), // red
	NoticeText:   lipgloss.Color("245"),
	EmoteText:    lipgloss.Color("141"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	BusyIndicator:    lipgloss.Color("220"), // amber while history loads

	ActivityMessage: lipgloss.Color("58"), // dark amber background tint
	ActivityMention: lipgloss.Color("52"), // dark red background tint
}
