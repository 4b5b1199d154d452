// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and training examples.
//
// # Key Types
//
//   - Message: Single immutable chat turn with role, content and timestamp
//   - Conversation: Append-only, insertion-ordered message log
//   - TrainingExample: One instruction/input/output triple for fine-tuning
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello!"))
//	history := conv.History()
//
//	ex := model.TrainingExample{Instruction: "Summarize", Output: "Done"}
//	ex.IsValid() // true
package model
