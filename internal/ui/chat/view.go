// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat/internal/model"
	"github.com/jeranaias/ragchat/internal/training"
	"github.com/jeranaias/ragchat/internal/util"
)

const (
	// maxVisibleEntries caps how many examples the panel draws at once.
	maxVisibleEntries = 3

	thinkingText = "Thinking..."
	emptyText    = "Ask a question about your documents. Ctrl+T opens the training panel."

	submitReadyText    = "Ctrl+S start training"
	submitDisabledText = "Ctrl+S disabled: no complete example"
)

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache holds rendered message bubbles by message ID. Messages never
// change, so entries only go stale when the width does.
type renderCache struct {
	width int
	byID  map[string]string
}

func newRenderCache() *renderCache {
	return &renderCache{byID: make(map[string]string)}
}

func (c *renderCache) get(id string, width int) (string, bool) {
	if c.width != width {
		c.width = width
		c.byID = make(map[string]string)
		return "", false
	}
	s, ok := c.byID[id]
	return s, ok
}

func (c *renderCache) put(id, rendered string) {
	c.byID[id] = rendered
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	parts := []string{m.renderHeader()}
	if m.train.PanelOpen() {
		parts = append(parts, m.renderPanel())
	}
	parts = append(parts, m.viewport.View())
	if line := m.renderStatusLine(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, m.renderInput(), m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout sizes the viewport to whatever the other sections leave and
// refreshes its content.
func (m *Model) layout() {
	reserved := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderHelp())
	if m.train.PanelOpen() {
		reserved += lipgloss.Height(m.renderPanel())
	}
	if m.renderStatusLine() != "" {
		reserved++
	}

	h := m.height - reserved
	if h < 1 {
		h = 1
	}
	w := m.width
	if w < 1 {
		w = 1
	}
	m.viewport.Width = w
	m.viewport.Height = h

	const promptLen = 2
	m.input.Width = max(10, w-4-promptLen)
	m.editor.Width = max(10, w-6-len(string(model.FieldInstruction))-2)

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// stickToBottom scrolls to the newest message on the next layout.
func (m *Model) stickToBottom() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme

	var dot string
	switch m.health {
	case healthUp:
		dot = t.HealthUp.Render("●")
	case healthDown:
		dot = t.HealthDown.Render("●")
	default:
		dot = t.HealthUnknown.Render("○")
	}

	left := t.HeaderTitle.Render("ragchat")
	if m.cfg.Backend != "" {
		left += " " + t.HeaderBackend.Render(m.cfg.Backend)
	}
	left += " " + dot

	hint := "Ctrl+T training"
	if m.train.PanelOpen() {
		hint = "Ctrl+T close panel"
	}
	right := t.HeaderHint.Render(hint)

	inner := m.width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	line := left
	if gap > 0 {
		line += strings.Repeat(" ", gap) + right
	}
	return t.Header.Width(m.width).Render(line)
}

// =============================================================================
// TRAINING PANEL
// =============================================================================

func (m Model) renderPanel() string {
	t := m.theme
	examples := m.train.Examples()

	var b strings.Builder
	title := fmt.Sprintf("Training data  %d of %d valid", m.train.ValidCount(), len(examples))
	b.WriteString(t.PanelTitle.Render(title))
	b.WriteString("\n")

	first, last := visibleEntries(m.currentEntry(), len(examples))
	if first > 0 {
		b.WriteString(t.EntryInvalid.Render(fmt.Sprintf("  ... %d above", first)))
		b.WriteString("\n")
	}
	width := m.width - 6
	for i := first; i < last; i++ {
		b.WriteString(m.renderEntry(i, examples[i], width))
	}
	if last < len(examples) {
		b.WriteString(t.EntryInvalid.Render(fmt.Sprintf("  ... %d below", len(examples)-last)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderSubmitHint())
	b.WriteString("\n")
	b.WriteString(m.renderTrainingStatus())
	return t.Panel.Width(max(10, m.width-2)).Render(strings.TrimRight(b.String(), "\n"))
}

// visibleEntries returns the [first, last) window of at most
// maxVisibleEntries examples around current.
func visibleEntries(current, n int) (int, int) {
	if n <= maxVisibleEntries {
		return 0, n
	}
	first := current - maxVisibleEntries/2
	if first < 0 {
		first = 0
	}
	if first+maxVisibleEntries > n {
		first = n - maxVisibleEntries
	}
	return first, first + maxVisibleEntries
}

func (m Model) renderEntry(idx int, ex model.TrainingExample, width int) string {
	t := m.theme

	mark := t.EntryInvalid.Render("incomplete")
	if ex.IsValid() {
		mark = t.StatusSuccess.Render("ready")
	}
	var b strings.Builder
	b.WriteString(t.EntryHeader.Render(fmt.Sprintf("#%d", idx+1)) + " " + mark + "\n")

	focusEntry, focusField, focused := m.focusedField()
	for _, f := range model.Fields {
		if focused && focusEntry == idx && focusField == f {
			b.WriteString("  " + m.editor.View() + "\n")
			continue
		}
		value := util.SingleLine(ex.Get(f))
		if value == "" {
			value = t.EntryInvalid.Render("-")
		} else {
			value = t.FieldBlurred.Render(util.TruncateWidth(value, max(1, width-15)))
		}
		b.WriteString("  " + t.FieldLabel.Render(string(f)+":") + value + "\n")
	}
	return b.String()
}

// renderSubmitHint shows whether Ctrl+S would submit. It asks the
// controller on every render, so each field edit re-evaluates it.
func (m Model) renderSubmitHint() string {
	if m.train.IsTraining() {
		return ""
	}
	if m.train.CanSubmit() {
		return m.theme.StatusSuccess.Render(submitReadyText)
	}
	return m.theme.EntryInvalid.Render(submitDisabledText)
}

func (m Model) renderTrainingStatus() string {
	t := m.theme
	status, kind := m.train.Status()
	switch kind {
	case training.StatusInProgress:
		return m.spinner.View() + " " + t.StatusProgress.Render(status)
	case training.StatusSuccess:
		return t.StatusSuccess.Render(status)
	case training.StatusFailure:
		return t.StatusFailure.Render(status)
	}
	return ""
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m Model) renderMessages() string {
	msgs := m.conv.Messages()
	if len(msgs) == 0 && !m.conv.IsLoading() {
		return m.theme.EmptyState.Render(emptyText)
	}

	width := m.theme.BubbleWidth()
	parts := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		if s, ok := m.cache.get(msg.ID, width); ok {
			parts = append(parts, s)
			continue
		}
		s := m.renderMessage(msg, width)
		m.cache.put(msg.ID, s)
		parts = append(parts, s)
	}
	if m.conv.IsLoading() {
		parts = append(parts, m.spinner.View()+" "+m.theme.ThinkingText.Render(thinkingText))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	t := m.theme

	label := t.RoleLabel.Render(msg.Role.DisplayName())
	if m.cfg.Timestamps {
		label += " " + t.Timestamp.Render(msg.Timestamp.Format("15:04:05"))
	}

	// Bubble padding and border take four columns.
	textWidth := max(1, width-4)
	body := msg.Content
	style := t.AssistantBubble
	switch {
	case msg.Role == model.RoleUser:
		style = t.UserBubble
	case msg.Failed:
		style = t.FailedBubble
	case m.markdown != nil:
		body = m.markdown.Render(body, textWidth)
	}

	bubble := style.Width(width - 2).Render(body)
	if msg.Role == model.RoleUser {
		label = lipgloss.NewStyle().MarginLeft(5).Render(label)
	} else {
		label = " " + label
	}
	return label + "\n" + bubble
}

// =============================================================================
// INPUT, STATUS AND HELP
// =============================================================================

func (m Model) renderStatusLine() string {
	switch {
	case m.warning != "":
		return m.theme.Warning.Render(util.TruncateWidth(m.warning, max(1, m.width)))
	case m.notice != "":
		return m.theme.Notice.Render(util.TruncateWidth(m.notice, max(1, m.width)))
	}
	return ""
}

func (m Model) renderInput() string {
	t := m.theme
	var line string
	switch {
	case m.conv.IsLoading():
		line = t.InputDisabled.Render("> waiting for reply...")
	case m.focus != 0:
		line = t.InputDisabled.Render("> " + m.input.Value())
	default:
		line = m.input.View()
	}
	return t.InputContainer.Width(max(1, m.width)).Render(line)
}

func (m Model) renderHelp() string {
	bindings := m.keyMap.ShortHelp()
	if m.train.PanelOpen() {
		bindings = m.keyMap.PanelHelp()
	}
	return m.renderBindings(bindings)
}

func (m Model) renderBindings(bindings []key.Binding) string {
	t := m.theme
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}
	line := strings.Join(parts, t.ShortcutDesc.Render(" • "))
	if m.width > 0 && lipgloss.Width(line) > m.width {
		// Drop descriptions when the line does not fit.
		keys := make([]string, 0, len(bindings))
		for _, b := range bindings {
			keys = append(keys, t.ShortcutKey.Render(b.Help().Key))
		}
		line = strings.Join(keys, " ")
	}
	return " " + line
}
