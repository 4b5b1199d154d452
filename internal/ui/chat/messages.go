// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/training"
)

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// ChatReplyMsg carries the outcome of a chat request back to Update.
type ChatReplyMsg struct {
	Pending *conversation.Pending
	Outcome conversation.Outcome
}

// =============================================================================
// TRAINING MESSAGES
// =============================================================================

// TrainingResultMsg carries the outcome of a training request back to Update.
type TrainingResultMsg struct {
	Submission *training.Submission
	Outcome    training.Outcome
}

// TrainingResetMsg signals that the training controller reset itself after a
// successful submission.
type TrainingResetMsg struct{}

// =============================================================================
// SERVICE MESSAGES
// =============================================================================

// HealthMsg reports the result of a health probe.
type HealthMsg struct {
	Response *api.HealthResponse
	Err      error
}

// healthTickMsg schedules the next health probe.
type healthTickMsg struct{}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports where a transcript was written.
type ExportDoneMsg struct {
	Path string
	Err  error
}
