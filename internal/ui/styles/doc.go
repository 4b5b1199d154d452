// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the ragchat TUI.

All colors are Lip Gloss AdaptiveColor values, so each one has a light and a
dark variant. NewTheme picks the variant: "dark" and "light" force it, "auto"
asks the terminal through termenv.

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	header := theme.Header.Width(width).Render(title)

Status text that must read without color goes through RenderSuccess,
RenderError or RenderWarning, which prefix an ASCII marker.
*/
package styles
