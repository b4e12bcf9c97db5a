// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown is the converter for outgoing message bodies. GFM gives
// tables, strikethrough, and autolinks, matching what other Matrix
// clients emit in formatted bodies.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// MarkdownToHTML converts an outgoing message body to a Matrix
// formatted_body. Returns false when the body carries no markdown
// formatting, in which case no formatted_body should be sent.
func MarkdownToHTML(body string) (string, bool) {
	var buffer bytes.Buffer
	if err := markdown.Convert([]byte(body), &buffer); err != nil {
		return "", false
	}
	converted := strings.TrimSpace(buffer.String())

	// A plain paragraph means the markdown added nothing; sending a
	// formatted_body for it would only bloat the event.
	plain := "<p>" + html.EscapeString(body) + "</p>"
	if converted == plain {
		return "", false
	}
	return converted, true
}

// fencePattern matches fenced code blocks with an optional language
// tag. The body of the fence is captured without the fence markers.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// HighlightCodeBlocks replaces fenced code blocks in an incoming
// message body with terminal-highlighted text. Bodies without fences
// pass through unchanged.
func HighlightCodeBlocks(body string) string {
	if !strings.Contains(body, "```") {
		return body
	}
	return fencePattern.ReplaceAllStringFunc(body, func(match string) string {
		groups := fencePattern.FindStringSubmatch(match)
		language, source := groups[1], groups[2]
		highlighted, err := highlight(source, language)
		if err != nil {
			return strings.TrimSuffix(source, "\n")
		}
		return strings.TrimSuffix(highlighted, "\n")
	})
}

// highlight runs one code block through chroma's terminal formatter.
func highlight(source, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("render: tokenising code block: %w", err)
	}
	var buffer bytes.Buffer
	if err := formatter.Format(&buffer, style, iterator); err != nil {
		return "", fmt.Errorf("render: formatting code block: %w", err)
	}
	return buffer.String(), nil
}
