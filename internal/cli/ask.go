// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask [message]
// Short:   Send one message and print the reply
//
// Examples:
//   ragchat ask "What does the onboarding doc say about VPN access?"
//   echo "Summarize the handbook" | ragchat ask
//   ragchat ask --json "List the holidays"
//   ragchat ask --backend qlora "Hello"

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/api"
)

// maxStdinBytes bounds a question read from a pipe.
const maxStdinBytes = 1 << 20

// askResult is the --json output shape.
type askResult struct {
	Message    string `json:"message"`
	Response   string `json:"response,omitempty"`
	Backend    string `json:"backend"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func newAskCmd(app *App) *cobra.Command {
	var asJSON bool
	var file string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and print the reply",
		Long: `Send one message to the chat service and print the reply.

With no argument the message is read from stdin when it is a pipe. --file
appends the contents of a file to the message.`,
		Example: `  ragchat ask "What does the onboarding doc say about VPN access?"
  echo "Summarize the handbook" | ragchat ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" && !IsTTY() {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinBytes))
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				question = strings.TrimSpace(string(data))
			}
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return &UsageError{Field: "file", Value: file, Reason: err.Error()}
				}
				question = strings.TrimSpace(question + "\n\n" + string(content))
			}
			if question == "" {
				return &UsageError{Field: "message", Reason: `nothing to send. Usage: ragchat ask "your message"`}
			}
			return app.ask(cmd, question, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON")
	cmd.Flags().StringVarP(&file, "file", "f", "", "append a file's contents to the message")
	return cmd
}

func (a *App) ask(cmd *cobra.Command, question string, asJSON bool) error {
	out := cmd.OutOrStdout()
	conv := a.NewConversation()

	p, ok := conv.Begin(question)
	if !ok {
		return &UsageError{Field: "message", Reason: "message is blank"}
	}
	outcome := conv.Send(cmd.Context(), p)
	reply, _ := conv.Finish(p, outcome)

	err := outcome.Err
	if err == nil && outcome.Response == nil {
		err = api.ErrPayload
	}
	if err != nil {
		err = &ChatError{Err: err}
	}

	if asJSON {
		res := askResult{
			Message:    question,
			Backend:    a.Config.API.ChatBackend,
			DurationMs: outcome.Duration.Milliseconds(),
		}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Response = reply.Content
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
		return err
	}

	if err != nil {
		// The apology goes to stdout like any reply; Execute prints only the
		// failure kind.
		fmt.Fprintln(out, reply.Content)
		return err
	}

	newMarkdownPrinter(IsStdoutTTY() && a.Config.UI.Markdown, GetTerminalWidth()).Print(out, reply.Content)
	if a.Logger != nil {
		a.entry("cli").WithField("duration", outcome.Duration.Round(time.Millisecond)).Debug("ask completed")
	}
	return nil
}
