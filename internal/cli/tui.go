// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat/internal/ui/chat"
	"github.com/jeranaias/ragchat/internal/ui/styles"
)

// healthInterval is how often the header indicator re-probes the service.
const healthInterval = 30 * time.Second

// RunTUI runs the full-screen chat until the user quits.
func (a *App) RunTUI() error {
	notifier := &chat.ResetNotifier{}
	conv := a.NewConversation()
	train := a.NewTraining(notifier.Notify)
	defer train.Close()

	theme := styles.NewTheme(a.Config.UI.Theme)
	m := chat.New(theme, chat.Config{
		Conversation:   conv,
		Training:       train,
		Health:         a.Client,
		HealthInterval: healthInterval,
		Backend:        a.Config.API.ChatBackend,
		Markdown:       a.Config.UI.Markdown,
		Timestamps:     a.Config.UI.Timestamps,
		ExportDir:      a.exportDirOrDefault(),
		Logger:         a.entry("tui"),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	notifier.Attach(p)
	defer notifier.Detach()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ragchat: %w", err)
	}
	return nil
}
