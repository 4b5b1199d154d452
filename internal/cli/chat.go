// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for ragchat.
//
// Command: chat
// Short:   Chat in plain line mode (no full-screen UI)
//
// Interactive Commands (during chat):
//   /train add                        Append a blank training example
//   /train set <n> <field> <value>    Edit field of example n (1-based)
//   /train rm <n>                     Remove example n
//   /train list                       Show the examples
//   /train load <file>                Replace the examples from a dataset file
//   /train submit                     Submit the valid examples for training
//   /export [markdown|json]           Write the transcript to a file
//   /clear-input                      Discard the unsent input buffer
//   /help                             Show available commands
//   /quit, /exit                      Leave the chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/config"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/dataset"
	"github.com/jeranaias/ragchat/internal/export"
	"github.com/jeranaias/ragchat/internal/model"
	"github.com/jeranaias/ragchat/internal/training"
	"github.com/jeranaias/ragchat/internal/util"
)

// historyFileName lives in the config directory.
const historyFileName = "chat_history"

func newChatCmd(app *App) *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in plain line mode",
		Long: `Chat in plain line mode with input history.

Lines starting with / are commands; /help lists them. Training examples
are edited with /train and submitted with /train submit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportDir != "" {
				app.exportDir = exportDir
			}
			return app.RunChat(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for /export transcripts (default: current directory)")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with a history file in the config directory.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(dir, historyFileName)}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) Read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close writes the history (mode 0600) and restores the terminal.
func (r *lineReader) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// ChatSession is the line-mode front end over the two controllers. It holds
// no chat or training state of its own.
type ChatSession struct {
	Conv  *conversation.Controller
	Train *training.Controller

	Backend    string
	Out        io.Writer
	ExportDir  string
	Timestamps bool

	markdown *markdownPrinter
	// resets carries scheduled panel resets to the prompt loop.
	resets chan struct{}
	once   sync.Once
}

// NewChatSession wires a session to app's client.
func (a *App) NewChatSession(out io.Writer, renderMarkdown bool) *ChatSession {
	s := &ChatSession{
		Backend:    a.Config.API.ChatBackend,
		Out:        out,
		ExportDir:  a.exportDirOrDefault(),
		Timestamps: a.Config.UI.Timestamps,
		markdown:   newMarkdownPrinter(renderMarkdown && a.Config.UI.Markdown, GetTerminalWidth()),
		resets:     make(chan struct{}, 1),
	}
	s.Conv = a.NewConversation()
	s.Train = a.NewTraining(s.notifyReset)
	return s
}

func (s *ChatSession) notifyReset() {
	select {
	case s.resets <- struct{}{}:
	default:
	}
}

// drainResets reports a reset that fired since the last prompt.
func (s *ChatSession) drainResets() {
	select {
	case <-s.resets:
		printInfo(s.Out, "Training form cleared.")
	default:
	}
}

// Close stops any pending reset timer.
func (s *ChatSession) Close() {
	s.once.Do(s.Train.Close)
}

// RunChat runs the line-mode chat on the process terminal.
func (a *App) RunChat(ctx context.Context) error {
	session := a.NewChatSession(a.Out, IsStdoutTTY())
	defer session.Close()

	printWelcome(a.Out, a.Config)

	reader := newLineReader()
	defer reader.Close()

	for {
		session.drainResets()
		input, err := reader.Read(promptColor.Sprint("you> "))
		if err != nil {
			// Ctrl+C, Ctrl+D and closed stdin all end the session.
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.Out)
				printExitSummary(a.Out, session)
				return nil
			}
			return err
		}

		cont, err := session.HandleLine(ctx, input)
		if err != nil {
			DisplayError(a.Err, err)
		}
		if !cont {
			printExitSummary(a.Out, session)
			return nil
		}
	}
}

// HandleLine processes one line of input. It returns false when the session
// should end.
func (s *ChatSession) HandleLine(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		return s.handleSlashCommand(ctx, trimmed)
	}
	// Sent as typed; only slash commands end the session.
	s.sendMessage(ctx, line)
	return true, nil
}

func (s *ChatSession) sendMessage(ctx context.Context, text string) {
	p, ok := s.Conv.Begin(text)
	if !ok {
		return
	}
	printInfo(s.Out, "Thinking...")
	reply, ok := s.Conv.Finish(p, s.Conv.Send(ctx, p))
	if !ok {
		return
	}
	s.printMessage(reply)
}

func (s *ChatSession) printMessage(msg model.Message) {
	label := msg.Role.DisplayName()
	if s.Timestamps {
		label += " " + msg.Timestamp.Format("15:04")
	}
	fmt.Fprintln(s.Out, labelColor.Sprint(label))
	if msg.Failed {
		fmt.Fprintln(s.Out, errorColor.Sprint(msg.Content))
		fmt.Fprintln(s.Out)
		return
	}
	s.markdown.Print(s.Out, msg.Content)
	fmt.Fprintln(s.Out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (s *ChatSession) handleSlashCommand(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/h", "/?":
		printHelp(s.Out)
	case "/train", "/t":
		return true, s.handleTrain(ctx, line, args)
	case "/clear-input", "/clear":
		s.Conv.SetInput("")
		printInfo(s.Out, "Input cleared.")
	case "/export":
		format := string(export.FormatMarkdown)
		if len(args) > 0 {
			format = args[0]
		}
		return true, s.exportTranscript(format)
	default:
		return true, &UsageError{Field: "command", Value: cmd, Reason: "unknown command, type /help"}
	}
	return true, nil
}

func (s *ChatSession) handleTrain(ctx context.Context, line string, args []string) error {
	if len(args) == 0 {
		s.printExamples()
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "list", "ls":
		s.printExamples()
	case "add":
		if s.Train.IsTraining() {
			return training.ErrLocked
		}
		n := s.Train.AddEntry()
		printInfo(s.Out, "Added example %d.", n+1)
	case "rm", "remove":
		if len(args) < 2 {
			return &UsageError{Field: "arguments", Reason: "usage: /train rm <n>"}
		}
		i, err := parseIndex(args[1], s.Train.Len())
		if err != nil {
			return err
		}
		if !s.Train.RemoveEntry(i) {
			printWarning(s.Out, "The last example cannot be removed.")
			return nil
		}
		printInfo(s.Out, "Removed example %d.", i+1)
	case "set":
		return s.setField(line, args)
	case "load":
		if len(args) < 2 {
			return &UsageError{Field: "arguments", Reason: "usage: /train load <file>"}
		}
		examples, err := dataset.Load(args[1])
		if err != nil {
			return err
		}
		if err := s.Train.Load(examples); err != nil {
			return err
		}
		sum := dataset.Summarize(examples)
		printInfo(s.Out, "Loaded %d examples, %d valid.", sum.Total, sum.Valid)
	case "submit", "start":
		return s.submitTraining(ctx)
	default:
		return &UsageError{Field: "train subcommand", Value: args[0], Reason: "expected add, set, rm, list, load or submit"}
	}
	return nil
}

// setField handles "/train set <n> <field> <value...>". The value keeps its
// inner spacing.
func (s *ChatSession) setField(line string, args []string) error {
	if len(args) < 3 {
		return &UsageError{Field: "arguments", Reason: "usage: /train set <n> <instruction|input|output> <value>"}
	}
	i, err := parseIndex(args[1], s.Train.Len())
	if err != nil {
		return err
	}
	field, err := parseField(args[2])
	if err != nil {
		return err
	}

	value := ""
	if len(args) > 3 {
		rest := line
		for _, tok := range []string{args[0], args[1], args[2]} {
			rest = rest[strings.Index(rest, tok)+len(tok):]
		}
		value = strings.TrimSpace(rest)
	}
	return s.Train.UpdateField(i, field, value)
}

func (s *ChatSession) submitTraining(ctx context.Context) error {
	sub, err := s.Train.Begin()
	if err != nil {
		if errors.Is(err, training.ErrNoValidExamples) {
			printWarning(s.Out, training.WarningNoValidExamples)
			return nil
		}
		return err
	}
	status, kind := s.Train.Status()
	printTrainingStatus(s.Out, status, kind)

	result := s.Train.Finish(sub, s.Train.Send(ctx, sub))
	printTrainingStatus(s.Out, result.Status, result.Kind)
	if result.OK() && result.Response.OutputDir != "" {
		printInfo(s.Out, "Output: %s", result.Response.OutputDir)
	}
	return nil
}

func (s *ChatSession) printExamples() {
	examples := s.Train.Examples()
	fmt.Fprintf(s.Out, "%s %d of %d valid\n",
		labelColor.Sprint("Training data"), s.Train.ValidCount(), len(examples))
	for i, ex := range examples {
		mark := warningColor.Sprint("incomplete")
		if ex.IsValid() {
			mark = successColor.Sprint("ready")
		}
		fmt.Fprintf(s.Out, "  #%d %s\n", i+1, mark)
		for _, f := range model.Fields {
			fmt.Fprintf(s.Out, "    %-12s %s\n", string(f)+":", util.TruncateWidth(util.SingleLine(ex.Get(f)), 60))
		}
	}
	switch {
	case s.Train.CanSubmit():
		fmt.Fprintln(s.Out, successColor.Sprint("Submit enabled: /train submit"))
	case !s.Train.IsTraining():
		fmt.Fprintln(s.Out, warningColor.Sprint("Submit disabled: no complete example"))
	}
	if status, kind := s.Train.Status(); kind != training.StatusNone {
		printTrainingStatus(s.Out, status, kind)
	}
}

func (s *ChatSession) exportTranscript(format string) error {
	t := export.NewTranscript(s.Conv.ConversationID(), s.Backend, s.Conv.Messages())
	opts := export.DefaultOptions()
	opts.OutputDir = s.ExportDir
	path, err := export.Export(t, format, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%s %s\n", successColor.Sprint("Exported to"), path)
	return nil
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// parseIndex converts a 1-based example number to a list index.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 || i > n {
		return 0, &UsageError{Field: "example number", Value: s, Reason: fmt.Sprintf("must be between 1 and %d", n)}
	}
	return i - 1, nil
}

func parseField(s string) (model.Field, error) {
	f, err := model.ParseField(s)
	if err != nil {
		return "", &UsageError{Field: "field", Value: s, Reason: "expected instruction, input or output"}
	}
	return f, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func printWelcome(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, labelColor.Sprint("ragchat line mode"))
	fmt.Fprintln(w, infoColor.Sprint(strings.Repeat("─", 30)))
	fmt.Fprintf(w, "%s %s\n", infoColor.Sprint("Service:"), cfg.API.BaseURL)
	fmt.Fprintf(w, "%s %s\n", infoColor.Sprint("Backend:"), cfg.API.ChatBackend)
	fmt.Fprintln(w)
	printInfo(w, "Type your message and press Enter. Commands: /help, /quit")
	fmt.Fprintln(w)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, labelColor.Sprint("Commands"))
	rows := [][2]string{
		{"/train add", "Append a blank training example"},
		{"/train set <n> <field> <value>", "Edit a field (instruction, input, output)"},
		{"/train rm <n>", "Remove example n"},
		{"/train list", "Show the training examples"},
		{"/train load <file>", "Load examples from JSON, JSONL or YAML"},
		{"/train submit", "Submit the valid examples"},
		{"/export [markdown|json]", "Write the transcript to a file"},
		{"/clear-input", "Discard the unsent input buffer"},
		{"/help", "Show this help"},
		{"/quit", "Leave the chat"},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", promptColor.Sprint(util.PadRight(r[0], 32)), r[1])
	}
	fmt.Fprintln(w)
}

func printExitSummary(w io.Writer, s *ChatSession) {
	if n := s.Conv.Len(); n > 0 {
		printInfo(w, "%d messages exchanged.", n)
	}
	printInfo(w, "Goodbye!")
}
