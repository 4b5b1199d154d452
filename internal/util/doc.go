// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the rest of ragchat.
//
//   - AtomicWriteFile: crash-safe file writing with fsync, used for config
//     files and transcript exports
//   - TruncateWidth, StringWidth, PadRight: column-aware string helpers for
//     the terminal UIs
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	label := util.TruncateWidth(example.Instruction, 40)
package util
