// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the ragchat command tree.
//
// The root command resolves configuration once (flags, then RAGCHAT_*
// environment and .env, then the config file, then defaults), builds the
// logger and the API client, and hands them to the subcommands through App.
//
// # Commands Overview
//
//   - ragchat: full-screen chat on a terminal, line mode otherwise
//   - chat: line-mode chat with /train and /export commands
//   - ask: one message, one reply
//   - train: submit examples from a JSON, JSONL or YAML file
//   - train schema: JSON Schema for those files
//   - health: probe the service health endpoint
//   - jobs: list journalled training submissions
//   - config: show, get, set, init, path
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// Errors are printed once by Execute and mapped to exit codes by GetExitCode.
package cli
