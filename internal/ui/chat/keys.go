// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit        key.Binding
	TogglePanel   key.Binding
	NextField     key.Binding
	PrevField     key.Binding
	AddEntry      key.Binding
	RemoveEntry   key.Binding
	StartTraining key.Binding
	Export        key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		TogglePanel: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "training"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "prev field"),
		),
		AddEntry: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "add example"),
		),
		RemoveEntry: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "remove example"),
		),
		StartTraining: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "start training"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown while the panel is closed.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.TogglePanel, k.Export, k.PageUp, k.Quit}
}

// PanelHelp returns the bindings shown while the panel is open.
func (k KeyMap) PanelHelp() []key.Binding {
	return []key.Binding{k.NextField, k.AddEntry, k.RemoveEntry, k.StartTraining, k.TogglePanel, k.Quit}
}

// FullHelp returns every binding in groups.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Export, k.Quit},
		{k.TogglePanel, k.NextField, k.PrevField},
		{k.AddEntry, k.RemoveEntry, k.StartTraining},
		{k.PageUp, k.PageDown},
	}
}
