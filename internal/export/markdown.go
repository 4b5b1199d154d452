// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ragchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontMatter is marshalled with yaml.v3, which takes care of quoting.
type frontMatter struct {
	Title        string `yaml:"title"`
	Conversation string `yaml:"conversation"`
	Backend      string `yaml:"backend,omitempty"`
	Date         string `yaml:"date,omitempty"`
	Messages     int    `yaml:"messages"`
	Exported     string `yaml:"exported"`
	Generator    string `yaml:"generator"`
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil || len(t.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm := frontMatter{
			Title:        t.Title,
			Conversation: t.ConversationID,
			Backend:      t.Backend,
			Messages:     len(t.Messages),
			Exported:     t.ExportedAt.Format(time.RFC3339),
			Generator:    "ragchat",
		}
		if !t.StartedAt.IsZero() {
			fm.Date = t.StartedAt.Format(time.RFC3339)
		}
		data, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(t.Title)))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if t.Backend != "" {
			sb.WriteString(fmt.Sprintf("- **Backend**: %s\n", t.Backend))
		}
		if !t.StartedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("- **Started**: %s\n", formatTimestamp(t.StartedAt)))
		}
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(t.Messages)))
		if failed := countFailed(t.Messages); failed > 0 {
			sb.WriteString(fmt.Sprintf("- **Failed requests**: %d\n", failed))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, msg := range t.Messages {
		label := fmt.Sprintf("[%s]", msg.Role.DisplayName())
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		content := strings.TrimSpace(msg.Content)
		if msg.Failed {
			content = "> " + content
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from ragchat on %s*\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

func countFailed(msgs []model.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Failed {
			n++
		}
	}
	return n
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
