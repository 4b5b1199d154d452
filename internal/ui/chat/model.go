// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/export"
	"github.com/jeranaias/ragchat/internal/logging"
	"github.com/jeranaias/ragchat/internal/training"
	"github.com/jeranaias/ragchat/internal/ui/styles"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config wires the model to its controllers and display options.
type Config struct {
	Conversation *conversation.Controller
	Training     *training.Controller

	// Health drives the header indicator; nil leaves it grey.
	Health         HealthChecker
	HealthInterval time.Duration

	// Backend labels the header ("rag" or "qlora").
	Backend string

	// Markdown renders assistant replies with glamour.
	Markdown   bool
	Timestamps bool

	// ExportFormat is "markdown" or "json"; ExportDir defaults to ".".
	ExportFormat string
	ExportDir    string

	Logger *logrus.Entry
}

// healthState is the header indicator.
type healthState int

const (
	healthUnknown healthState = iota
	healthUp
	healthDown
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the ragchat screen.
type Model struct {
	theme *styles.Theme
	cfg   Config
	conv  *conversation.Controller
	train *training.Controller
	log   *logrus.Entry

	keyMap   KeyMap
	viewport viewport.Model
	input    textinput.Model
	editor   textinput.Model
	spinner  spinner.Model
	markdown *markdownRenderer
	cache    *renderCache

	// focus is the position in the ring described in panel.go.
	focus  int
	width  int
	height int
	ready  bool

	health  healthState
	warning string
	notice  string
}

// New creates the model. Config.Conversation and Config.Training must be set.
func New(theme *styles.Theme, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.ExportFormat == "" {
		cfg.ExportFormat = string(export.FormatMarkdown)
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.TextStyle = theme.InputText
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	ed := textinput.New()
	ed.CharLimit = 8192
	ed.PromptStyle = theme.FieldFocused
	ed.TextStyle = theme.FieldBlurred

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	var md *markdownRenderer
	if cfg.Markdown {
		md = newMarkdownRenderer(theme.IsDark)
	}

	return Model{
		theme:    theme,
		cfg:      cfg,
		conv:     cfg.Conversation,
		train:    cfg.Training,
		log:      cfg.Logger.WithField("component", "tui"),
		keyMap:   DefaultKeyMap(),
		viewport: vp,
		input:    ti,
		editor:   ed,
		spinner:  sp,
		markdown: md,
		cache:    newRenderCache(),
	}
}

// Init starts the cursor blink and the first health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, checkHealthCmd(m.cfg.Health))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.ready {
		m.layout()
	}
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.ready = true
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChatReplyMsg:
		return m.handleChatReply(msg)

	case TrainingResultMsg:
		return m.handleTrainingResult(msg)

	case TrainingResetMsg:
		return m.clampFocus()

	case HealthMsg:
		m.health = healthDown
		if msg.Err == nil && msg.Response.Healthy() {
			m.health = healthUp
		}
		return scheduleHealthCmd(m.cfg.HealthInterval)

	case healthTickMsg:
		return checkHealthCmd(m.cfg.Health)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("export failed")
			m.warning = "Export failed: " + msg.Err.Error()
		} else {
			m.notice = "Exported to " + msg.Path
		}
		return nil

	case spinner.TickMsg:
		if m.conv.IsLoading() || m.train.IsTraining() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return cmd
		}
		return nil
	}

	// Cursor blink and anything else the inputs understand.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.editor, cmd = m.editor.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.warning = ""
	m.notice = ""
	panelOpen := m.train.PanelOpen()

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keyMap.TogglePanel):
		if !m.train.TogglePanel() {
			return m.setFocus(0)
		}
		return nil

	case key.Matches(msg, m.keyMap.Export):
		return exportCmd(m.conv.ConversationID(), m.cfg.Backend, m.conv.Messages(),
			m.cfg.ExportFormat, &export.Options{
				OutputDir:         m.cfg.ExportDir,
				IncludeMetadata:   true,
				IncludeTimestamps: true,
			})

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return nil
	}

	if panelOpen {
		switch {
		case key.Matches(msg, m.keyMap.NextField):
			return m.moveFocus(1)
		case key.Matches(msg, m.keyMap.PrevField):
			return m.moveFocus(-1)
		case key.Matches(msg, m.keyMap.AddEntry):
			return m.addEntry()
		case key.Matches(msg, m.keyMap.RemoveEntry):
			return m.removeEntry()
		case key.Matches(msg, m.keyMap.StartTraining):
			return m.startTraining()
		}
	}

	if _, _, ok := m.focusedField(); ok {
		if key.Matches(msg, m.keyMap.Submit) {
			return m.moveFocus(1)
		}
		return m.editField(msg)
	}

	if key.Matches(msg, m.keyMap.Submit) {
		return m.submitChat()
	}
	if m.conv.IsLoading() {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.conv.SetInput(m.input.Value())
	return cmd
}

// =============================================================================
// CHAT
// =============================================================================

// submitChat sends the input line. Blank input or an outstanding request
// leaves everything as it was.
func (m *Model) submitChat() tea.Cmd {
	p, ok := m.conv.Begin(m.input.Value())
	if !ok {
		return nil
	}
	m.input.Reset()
	m.input.Blur()
	m.stickToBottom()
	return tea.Batch(sendChatCmd(m.conv, p), m.spinner.Tick)
}

func (m *Model) handleChatReply(msg ChatReplyMsg) tea.Cmd {
	if _, ok := m.conv.Finish(msg.Pending, msg.Outcome); !ok {
		return nil
	}
	m.stickToBottom()
	if m.focus == 0 {
		return m.input.Focus()
	}
	return nil
}

// =============================================================================
// TRAINING
// =============================================================================

// startTraining submits the valid examples. With none valid it only raises
// the warning.
func (m *Model) startTraining() tea.Cmd {
	s, err := m.train.Begin()
	switch {
	case errors.Is(err, training.ErrNoValidExamples):
		m.warning = training.WarningNoValidExamples
		return nil
	case err != nil:
		m.log.WithError(err).Debug("training not started")
		return nil
	}
	m.editor.Blur()
	return tea.Batch(sendTrainingCmd(m.train, s), m.spinner.Tick)
}

func (m *Model) handleTrainingResult(msg TrainingResultMsg) tea.Cmd {
	m.train.Finish(msg.Submission, msg.Outcome)
	return m.clampFocus()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversation returns the conversation controller.
func (m Model) Conversation() *conversation.Controller {
	return m.conv
}

// Training returns the training controller.
func (m Model) Training() *training.Controller {
	return m.train
}

// Warning returns the warning shown above the input line, if any.
func (m Model) Warning() string {
	return m.warning
}

// Notice returns the informational line shown above the input, if any.
func (m Model) Notice() string {
	return m.notice
}
