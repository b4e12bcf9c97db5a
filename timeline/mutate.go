// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"fmt"
	"sort"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/render"
)

// RedactionStyle selects how a redacted message is shown.
type RedactionStyle int

const (
	// RedactionDelete replaces the message body with the redaction
	// notice.
	RedactionDelete RedactionStyle = iota

	// RedactionNotice appends the redaction notice after the original
	// body.
	RedactionNotice

	// RedactionStrikeThrough strikes through the original body and
	// appends the notice.
	RedactionStrikeThrough
)

// ParseRedactionStyle maps a configuration string to a RedactionStyle.
func ParseRedactionStyle(name string) (RedactionStyle, error) {
	switch name {
	case "delete":
		return RedactionDelete, nil
	case "notice":
		return RedactionNotice, nil
	case "strikethrough":
		return RedactionStrikeThrough, nil
	default:
		return 0, fmt.Errorf("timeline: unknown redaction style %q", name)
	}
}

// appendRendered appends a rendered event's lines to the buffer.
func appendRendered(buffer display.Buffer, rendered render.RenderedEvent, printed int64) {
	for _, message := range rendered.Lines {
		tags := make([]string, len(rendered.Tags))
		copy(tags, rendered.Tags)
		buffer.AppendLine(display.Line{
			Date:        rendered.Timestamp,
			DatePrinted: printed,
			Tags:        tags,
			Prefix:      rendered.Prefix,
			Message:     message,
		})
	}
}

// linesTagged returns the indices of all lines carrying the tag, in
// ascending (oldest-first) order.
func linesTagged(buffer display.Buffer, tag string) []int {
	var indices []int
	for i := 0; i < buffer.Len(); i++ {
		line, ok := buffer.Line(i)
		if !ok {
			break
		}
		if line.HasTag(tag) {
			indices = append(indices, i)
		}
	}
	return indices
}

// applyEdit overwrites the lines of a previously rendered event with
// the replacement's rendering. The edit is rejected when the first
// matched line was not authored by the edit's sender, which prevents
// spoofed edits from a non-author. When the replacement renders to
// more lines than the original, the surplus is appended as new lines
// carrying the original event's identity; the caller must re-sort
// afterward. When it renders to fewer, the surplus originals are
// blanked, since the display surface cannot remove lines.
//
// Returns false when no line matched the target or the edit was
// rejected; the timeline is unchanged in either case.
func applyEdit(buffer display.Buffer, target ref.EventID, sender ref.UserID, rendered render.RenderedEvent, printed int64) bool {
	matched := linesTagged(buffer, display.EventIDTag(target.String()))
	if len(matched) == 0 {
		return false
	}

	first, ok := buffer.Line(matched[0])
	if !ok || !first.HasTag(display.SenderTag(sender.String())) {
		return false
	}

	for i, index := range matched {
		line, ok := buffer.Line(index)
		if !ok {
			continue
		}
		if i < len(rendered.Lines) {
			line.Message = rendered.Lines[i]
		} else {
			line.Message = ""
		}
		buffer.SetLine(index, line)
	}

	for i := len(matched); i < len(rendered.Lines); i++ {
		tags := make([]string, len(first.Tags))
		copy(tags, first.Tags)
		buffer.AppendLine(display.Line{
			Date:        first.Date,
			DatePrinted: printed,
			Tags:        tags,
			Prefix:      first.Prefix,
			Message:     rendered.Lines[i],
		})
	}
	return true
}

// applyRedaction rewrites the lines of a redacted event according to
// the style. Lines already carrying the redacted marker are left
// alone, so redacting the same event twice produces exactly one
// notice. Returns false when no unredacted line matched.
func applyRedaction(buffer display.Buffer, target ref.EventID, notice string, style RedactionStyle) bool {
	var matched []int
	for _, index := range linesTagged(buffer, display.EventIDTag(target.String())) {
		line, ok := buffer.Line(index)
		if !ok || line.HasTag(display.TagRedacted) {
			continue
		}
		matched = append(matched, index)
	}
	if len(matched) == 0 {
		return false
	}

	// The most recent matching line carries the notice; earlier
	// continuation lines are obscured without annotation.
	last := matched[len(matched)-1]
	for _, index := range matched {
		line, ok := buffer.Line(index)
		if !ok {
			continue
		}
		switch style {
		case RedactionDelete:
			if index == last {
				line.Message = notice
			} else {
				line.Message = ""
			}
		case RedactionNotice:
			if index == last {
				line.Message = line.Message + " " + notice
			}
		case RedactionStrikeThrough:
			line.Message = render.StrikeThrough(line.Message)
			if index == last {
				line.Message = line.Message + " " + notice
			}
		}
		line.Tags = append(line.Tags, display.TagRedacted)
		buffer.SetLine(index, line)
	}
	return true
}

// resortTimeline stable-sorts all lines by event timestamp, ties
// broken by their current relative order, and rewrites every line in
// place to match the sorted order. The display surface has no
// reordering primitive; sorting is simulated by overwriting contents.
func resortTimeline(buffer display.Buffer) {
	count := buffer.Len()
	lines := make([]display.Line, 0, count)
	for i := 0; i < count; i++ {
		line, ok := buffer.Line(i)
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Date != lines[j].Date {
			return lines[i].Date < lines[j].Date
		}
		return lines[i].DatePrinted < lines[j].DatePrinted
	})
	for i, line := range lines {
		buffer.SetLine(i, line)
	}
}

// replaceTagged overwrites the lines carrying a tag with a rendered
// event, replacing identity and content wholesale. Used to turn a
// local echo into its confirmed form: the matched lines take the
// confirmed event's tags, timestamp, and body. Surplus rendered lines
// are appended; surplus matched lines are blanked. Returns false when
// no line matched.
func replaceTagged(buffer display.Buffer, tag string, rendered render.RenderedEvent, printed int64) bool {
	matched := linesTagged(buffer, tag)
	if len(matched) == 0 {
		return false
	}

	for i, index := range matched {
		line, ok := buffer.Line(index)
		if !ok {
			continue
		}
		tags := make([]string, len(rendered.Tags))
		copy(tags, rendered.Tags)
		line.Date = rendered.Timestamp
		line.Tags = tags
		line.Prefix = rendered.Prefix
		if i < len(rendered.Lines) {
			line.Message = rendered.Lines[i]
		} else {
			line.Message = ""
		}
		buffer.SetLine(index, line)
	}

	for i := len(matched); i < len(rendered.Lines); i++ {
		tags := make([]string, len(rendered.Tags))
		copy(tags, rendered.Tags)
		buffer.AppendLine(display.Line{
			Date:        rendered.Timestamp,
			DatePrinted: printed,
			Tags:        tags,
			Prefix:      rendered.Prefix,
			Message:     rendered.Lines[i],
		})
	}
	return true
}
