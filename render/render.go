// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/parley-chat/parley/display"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/tui"
	"github.com/parley-chat/parley/messaging"
)

// Sender describes the resolved author of an event, as the roster
// knows them at render time.
type Sender struct {
	// UserID is the fully-qualified Matrix user ID.
	UserID ref.UserID
	// Nick is the display name, or the localpart when none is set.
	Nick string
	// Ambiguous marks nicks shared by several members; ambiguous
	// senders render with the user ID appended.
	Ambiguous bool
	// Self marks the local user's own events.
	Self bool
}

// DisplayNick returns the nick as rendered: ambiguous members carry
// the user ID for disambiguation.
func (s Sender) DisplayNick() string {
	if s.Ambiguous {
		return fmt.Sprintf("%s (%s)", s.Nick, s.UserID)
	}
	return s.Nick
}

// RenderedEvent is one event turned into displayable lines. All lines
// share the prefix, tags, and timestamp; multi-line bodies produce one
// entry per line.
type RenderedEvent struct {
	Prefix    string
	Tags      []string
	Lines     []string
	Timestamp int64 // milliseconds
}

// Renderer converts events into rendered lines. The zero value is not
// usable; construct with NewRenderer.
type Renderer struct {
	theme         Theme
	homeserverURL string
}

// Theme is the subset of the UI theme rendering needs.
type Theme = tui.Theme

// NewRenderer creates a Renderer. homeserverURL is used to resolve
// mxc:// attachment URIs into download links; pass the same base URL
// the messaging client uses.
func NewRenderer(theme Theme, homeserverURL string) *Renderer {
	return &Renderer{
		theme:         theme,
		homeserverURL: strings.TrimRight(homeserverURL, "/"),
	}
}

// Message renders an m.room.message event. Returns false for message
// types this client does not display.
func (r *Renderer) Message(eventID ref.EventID, timestamp int64, sender Sender, content messaging.MessageContent) (RenderedEvent, bool) {
	tags := []string{
		display.EventIDTag(eventID.String()),
		display.SenderTag(sender.UserID.String()),
	}
	if sender.Self {
		tags = append(tags, display.TagSelf)
	}

	nick := r.styledNick(sender)

	switch content.MsgType {
	case messaging.MsgText:
		return RenderedEvent{
			Prefix:    nick,
			Tags:      tags,
			Lines:     splitBody(HighlightCodeBlocks(content.Body)),
			Timestamp: timestamp,
		}, true

	case messaging.MsgEmote:
		style := lipgloss.NewStyle().Foreground(r.theme.EmoteText)
		body := fmt.Sprintf("%s %s", sender.DisplayNick(), content.Body)
		return RenderedEvent{
			Prefix:    style.Render("*"),
			Tags:      tags,
			Lines:     splitBody(style.Render(body)),
			Timestamp: timestamp,
		}, true

	case messaging.MsgNotice:
		style := lipgloss.NewStyle().Foreground(r.theme.NoticeText)
		return RenderedEvent{
			Prefix:    nick,
			Tags:      tags,
			Lines:     splitBody(style.Render(content.Body)),
			Timestamp: timestamp,
		}, true

	case messaging.MsgImage, messaging.MsgFile, messaging.MsgAudio, messaging.MsgVideo:
		body := content.Body
		if url := r.resolveMXC(content.URL); url != "" {
			body = fmt.Sprintf("%s: %s", content.Body, url)
		}
		return RenderedEvent{
			Prefix:    nick,
			Tags:      tags,
			Lines:     splitBody(body),
			Timestamp: timestamp,
		}, true

	default:
		return RenderedEvent{}, false
	}
}

// Echo renders an unconfirmed outgoing message as a dimmed local echo.
// The lines are tagged with the transaction ID so the confirmation can
// find and replace them.
func (r *Renderer) Echo(transactionID string, timestamp int64, sender Sender, body string) RenderedEvent {
	style := lipgloss.NewStyle().Foreground(r.theme.EchoText)
	return RenderedEvent{
		Prefix: r.styledNick(sender),
		Tags: []string{
			display.TagSelf,
			display.TagEcho,
			display.SenderTag(sender.UserID.String()),
			display.TransactionTag(transactionID),
		},
		Lines:     splitBody(style.Render(body)),
		Timestamp: timestamp,
	}
}

// styledNick renders the sender column: theme-hashed color for other
// users, the own-nick color for the local user.
func (r *Renderer) styledNick(sender Sender) string {
	color := r.theme.NickColor(sender.UserID.String())
	if sender.Self {
		color = r.theme.OwnNick
	}
	return lipgloss.NewStyle().Foreground(color).Render(sender.DisplayNick())
}

// resolveMXC turns an mxc://server/mediaID URI into a homeserver
// download URL. Returns "" for anything that is not an mxc URI.
func (r *Renderer) resolveMXC(uri string) string {
	rest, ok := strings.CutPrefix(uri, "mxc://")
	if !ok {
		return ""
	}
	server, mediaID, ok := strings.Cut(rest, "/")
	if !ok || server == "" || mediaID == "" {
		return ""
	}
	return fmt.Sprintf("%s/_matrix/media/v3/download/%s/%s", r.homeserverURL, server, mediaID)
}

// splitBody splits a body into lines, dropping a single trailing
// newline but preserving interior blank lines.
func splitBody(body string) []string {
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return []string{""}
	}
	return strings.Split(body, "\n")
}
