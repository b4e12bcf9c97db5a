// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderScrollbar produces a single-column scrollbar of the given
// height. The thumb marks the visible slice of the timeline; it spans
// the whole column when everything fits. While a history fetch is in
// flight the thumb switches to the busy-indicator color so the user
// can see that scrollback past the top is loading.
func RenderScrollbar(theme Theme, height, totalLines, visibleLines, scrollOffset int, fetching bool) string {
	if height <= 0 {
		return ""
	}

	thumbColor := theme.FaintText
	if fetching {
		thumbColor = theme.BusyIndicator
	}
	thumb := lipgloss.NewStyle().Foreground(thumbColor).Render("┃")
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")

	thumbStart, thumbEnd := thumbBounds(height, totalLines, visibleLines, scrollOffset)

	var column strings.Builder
	for row := 0; row < height; row++ {
		if row > 0 {
			column.WriteByte('\n')
		}
		if row >= thumbStart && row < thumbEnd {
			column.WriteString(thumb)
		} else {
			column.WriteString(track)
		}
	}
	return column.String()
}

// thumbBounds returns the half-open row range [start, end) the thumb
// occupies. The thumb is proportional to visible/total with a one-row
// minimum, positioned by the scroll offset within the scrollable range.
func thumbBounds(height, totalLines, visibleLines, scrollOffset int) (start, end int) {
	if totalLines <= visibleLines || totalLines <= 0 {
		return 0, height
	}

	size := height * visibleLines / totalLines
	if size < 1 {
		size = 1
	}

	scrollable := totalLines - visibleLines
	trackRange := height - size
	if scrollable > 0 && trackRange > 0 {
		start = scrollOffset * trackRange / scrollable
	}
	if start+size > height {
		start = height - size
	}
	return start, start + size
}
