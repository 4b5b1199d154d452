// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// markdownRenderer renders assistant replies with glamour. Renderers are
// rebuilt only when the wrap width changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(dark bool) *markdownRenderer {
	style := styles.LightStyle
	if dark {
		style = styles.DarkStyle
	}
	return &markdownRenderer{style: style}
}

// Render returns content as styled terminal text wrapped at width. On any
// renderer error the plain content is returned.
func (r *markdownRenderer) Render(content string, width int) string {
	if r == nil || width <= 0 {
		return content
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer = tr
		r.width = width
	}

	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	// glamour pads the document with blank lines; the bubble has its own.
	return strings.Trim(out, "\n")
}
