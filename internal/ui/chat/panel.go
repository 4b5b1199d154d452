// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat/internal/model"
)

// =============================================================================
// FOCUS RING
// =============================================================================

// Focus position 0 is the chat line. Position k > 0 addresses field
// (k-1)%3 of example (k-1)/3. The ring only extends past 0 while the panel
// is open.

// focusedField returns the example index and field under focus. ok is false
// when the chat line has focus.
func (m *Model) focusedField() (entry int, field model.Field, ok bool) {
	if m.focus <= 0 {
		return 0, "", false
	}
	k := m.focus - 1
	return k / len(model.Fields), model.Fields[k%len(model.Fields)], true
}

// focusOf returns the ring position of field in entry.
func focusOf(entry int, field model.Field) int {
	for i, f := range model.Fields {
		if f == field {
			return 1 + entry*len(model.Fields) + i
		}
	}
	return 0
}

// ringSize is the number of focus positions currently reachable.
func (m *Model) ringSize() int {
	if !m.train.PanelOpen() {
		return 1
	}
	return 1 + m.train.Len()*len(model.Fields)
}

// moveFocus steps the focus by delta around the ring.
func (m *Model) moveFocus(delta int) tea.Cmd {
	n := m.ringSize()
	return m.setFocus(((m.focus+delta)%n + n) % n)
}

// setFocus moves the focus to pos, loading the panel editor with the
// field's current value. Out-of-range positions fall back to the chat line.
func (m *Model) setFocus(pos int) tea.Cmd {
	if pos < 0 || pos >= m.ringSize() {
		pos = 0
	}
	m.focus = pos

	entry, field, ok := m.focusedField()
	if !ok {
		m.editor.Blur()
		if m.conv.IsLoading() {
			m.input.Blur()
			return nil
		}
		return m.input.Focus()
	}

	// The reset timer can shrink the list between ringSize and this snapshot.
	examples := m.train.Examples()
	if entry >= len(examples) {
		return m.setFocus(0)
	}
	m.input.Blur()
	m.editor.SetValue(examples[entry].Get(field))
	m.editor.CursorEnd()
	m.editor.Prompt = string(field) + ": "
	if m.train.IsTraining() {
		m.editor.Blur()
		return nil
	}
	return m.editor.Focus()
}

// clampFocus keeps the focus valid after the example list or the panel
// state changed underneath it.
func (m *Model) clampFocus() tea.Cmd {
	if m.focus >= m.ringSize() {
		return m.setFocus(m.ringSize() - 1)
	}
	return m.setFocus(m.focus)
}

// currentEntry is the example Ctrl+D acts on: the focused one, else the last.
func (m *Model) currentEntry() int {
	if entry, _, ok := m.focusedField(); ok {
		return entry
	}
	return m.train.Len() - 1
}

// =============================================================================
// PANEL ACTIONS
// =============================================================================

// addEntry appends a blank example and focuses its instruction.
func (m *Model) addEntry() tea.Cmd {
	if m.train.IsTraining() {
		return nil
	}
	idx := m.train.AddEntry()
	return m.setFocus(focusOf(idx, model.FieldInstruction))
}

// removeEntry removes the current example; the last one cannot go.
func (m *Model) removeEntry() tea.Cmd {
	if m.train.IsTraining() {
		return nil
	}
	if !m.train.RemoveEntry(m.currentEntry()) {
		return nil
	}
	return m.clampFocus()
}

// editField forwards a key to the panel editor and stores the new value.
func (m *Model) editField(msg tea.KeyMsg) tea.Cmd {
	entry, field, ok := m.focusedField()
	if !ok || m.train.IsTraining() {
		return nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if err := m.train.UpdateField(entry, field, m.editor.Value()); err != nil {
		m.log.WithError(err).Debug("field edit rejected")
	}
	return cmd
}
