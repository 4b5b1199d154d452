// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/export"
	"github.com/jeranaias/ragchat/internal/model"
	"github.com/jeranaias/ragchat/internal/training"
)

// healthTimeout bounds a single health probe.
const healthTimeout = 5 * time.Second

// HealthChecker probes the service health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// sendChatCmd runs the chat round trip for p off the update loop.
func sendChatCmd(ctrl *conversation.Controller, p *conversation.Pending) tea.Cmd {
	return func() tea.Msg {
		out := ctrl.Send(context.Background(), p)
		return ChatReplyMsg{Pending: p, Outcome: out}
	}
}

// sendTrainingCmd runs the training round trip for s off the update loop.
func sendTrainingCmd(ctrl *training.Controller, s *training.Submission) tea.Cmd {
	return func() tea.Msg {
		out := ctrl.Send(context.Background(), s)
		return TrainingResultMsg{Submission: s, Outcome: out}
	}
}

// checkHealthCmd probes the service once.
func checkHealthCmd(checker HealthChecker) tea.Cmd {
	if checker == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()

		resp, err := checker.Health(ctx)
		return HealthMsg{Response: resp, Err: err}
	}
}

// scheduleHealthCmd waits interval before asking for another probe.
func scheduleHealthCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

// exportCmd writes the transcript in the background.
func exportCmd(convID, backend string, msgs []model.Message, format string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		t := export.NewTranscript(convID, backend, msgs)
		path, err := export.Export(t, format, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// RESET NOTIFIER
// =============================================================================

// ResetNotifier forwards training resets into a running program. Its Notify
// method is meant for training.Options.OnReset; resets that fire before
// Attach or after Detach are dropped.
type ResetNotifier struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach sets the program that receives TrainingResetMsg.
func (n *ResetNotifier) Attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.program = p
}

// Detach stops forwarding.
func (n *ResetNotifier) Detach() {
	n.Attach(nil)
}

// Notify sends a TrainingResetMsg to the attached program.
func (n *ResetNotifier) Notify() {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()

	if p != nil {
		p.Send(TrainingResetMsg{})
	}
}
