// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/jeranaias/ragchat/internal/training"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgHiBlack)
	promptColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgMagenta, color.Bold)
)

// printWarning writes a "[!]" line in the warning color.
func printWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", warningColor.Sprint("[!]"), msg)
}

// printInfo writes a dimmed line.
func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, infoColor.Sprintf(format, args...))
}

// printTrainingStatus colors a training status line by outcome.
func printTrainingStatus(w io.Writer, status string, kind training.StatusKind) {
	switch kind {
	case training.StatusSuccess:
		fmt.Fprintln(w, successColor.Sprint(status))
	case training.StatusFailure:
		fmt.Fprintln(w, errorColor.Sprint(status))
	case training.StatusInProgress:
		fmt.Fprintln(w, warningColor.Sprint(status))
	}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownPrinter renders replies with glamour when enabled and falls back
// to plain text otherwise.
type markdownPrinter struct {
	renderer *glamour.TermRenderer
}

// newMarkdownPrinter returns a printer; enabled should be false for piped
// output so escape codes never reach a file.
func newMarkdownPrinter(enabled bool, width int) *markdownPrinter {
	if !enabled {
		return &markdownPrinter{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &markdownPrinter{}
	}
	return &markdownPrinter{renderer: r}
}

// Print writes content to w, rendered when possible.
func (p *markdownPrinter) Print(w io.Writer, content string) {
	if p.renderer != nil {
		if out, err := p.renderer.Render(content); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, strings.TrimRight(content, "\n"))
}
