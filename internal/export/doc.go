// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to Markdown or JSON files on demand.
//
// Exports are one-way: nothing here is read back, and the chat log itself
// is never persisted between sessions.
//
// # Usage
//
//	t := export.NewTranscript(ctrl.ConversationID(), "rag", ctrl.Messages())
//	path, err := export.Export(t, "markdown", export.DefaultOptions())
package export
