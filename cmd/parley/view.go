// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/tui"
)

// View implements tea.Model.
func (m model) View() string {
	if !m.ready {
		return "starting up..."
	}

	var view strings.Builder
	view.WriteString(m.renderHeader())
	view.WriteByte('\n')

	busy := false
	if room := m.activeSession(); room != nil {
		busy = room.Busy()
	}
	scrollbar := tui.RenderScrollbar(
		m.theme,
		m.viewport.Height,
		m.viewport.TotalLineCount(),
		m.viewport.VisibleLineCount(),
		m.viewport.YOffset,
		busy,
	)
	view.WriteString(lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderRoomList(),
		m.viewport.View(),
		scrollbar,
	))
	view.WriteByte('\n')

	view.WriteString(m.renderStatusBar(busy))
	view.WriteByte('\n')
	view.WriteString(m.input.View())
	return view.String()
}

// renderHeader shows the active room's display name and topic.
func (m model) renderHeader() string {
	header := "parley"
	if !m.activeRoom.IsZero() {
		header = m.roomLabel(m.activeRoom)
		if buffer := m.app.buffer(m.activeRoom); buffer != nil {
			if topic := buffer.Title(); topic != "" {
				header += " — " + topic
			}
		}
	}
	style := lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
	return style.Render(ansi.Truncate(header, m.width, "…"))
}

// renderRoomList draws the left pane: one row per room, the active
// room inverted, rooms with recent traffic tinted by the activity
// tracker.
func (m model) renderRoomList() string {
	now := time.Now()
	divider := lipgloss.NewStyle().Foreground(m.theme.BorderColor).Render("│")

	rows := make([]string, m.viewport.Height)
	for index := range rows {
		if index >= len(m.rooms) {
			rows[index] = strings.Repeat(" ", roomListWidth) + divider
			continue
		}
		roomID := m.rooms[index]
		label := ansi.Truncate(m.roomLabel(roomID), roomListWidth-1, "…")
		label = " " + label + strings.Repeat(" ", roomListWidth-1-ansi.StringWidth(label))

		style := lipgloss.NewStyle().Foreground(m.theme.NormalText)
		switch {
		case roomID == m.activeRoom:
			style = style.
				Background(m.theme.SelectedBackground).
				Foreground(m.theme.SelectedForeground)
		case m.tracker.Intensity(roomID.String(), now) > 0:
			tint := m.theme.ActivityMessage
			if m.tracker.Kind(roomID.String()) == tui.ActivityHighlight {
				tint = m.theme.ActivityMention
			}
			style = style.Background(tint)
		}
		rows[index] = style.Render(label) + divider
	}
	return strings.Join(rows, "\n")
}

// renderStatusBar composes the status line: the latest status note on
// the left, the busy indicator and typing notice on the right.
func (m model) renderStatusBar(busy bool) string {
	var right []string
	if busy {
		indicator := lipgloss.NewStyle().Foreground(m.theme.BusyIndicator)
		right = append(right, indicator.Render("fetching history"))
	}
	if buffer := m.app.buffer(m.activeRoom); buffer != nil {
		if typing := buffer.LocalVar("typing"); typing != "" {
			faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
			right = append(right, faint.Render("typing: "+typing))
		}
	}

	left := ansi.Truncate(m.status, m.width, "…")
	rightText := strings.Join(right, "  ")

	padding := m.width - ansi.StringWidth(left) - ansi.StringWidth(rightText)
	if padding < 1 {
		return lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(left)
	}
	return lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(left) +
		strings.Repeat(" ", padding) + rightText
}

// renderTimeline flattens a room buffer into viewport content: each
// line is its prefix and body, word-wrapped to the viewport width.
func renderTimeline(buffer *display.LineBuffer, width int) string {
	lines := buffer.Lines()
	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		text := line.Message
		if line.Prefix != "" {
			text = line.Prefix + " " + line.Message
		}
		rendered = append(rendered, ansi.Wordwrap(text, width, ""))
	}
	return strings.Join(rendered, "\n")
}
