// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared application state for ragchat.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/config"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/journal"
	"github.com/jeranaias/ragchat/internal/logging"
	"github.com/jeranaias/ragchat/internal/training"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "ragchat/skip-setup"

// =============================================================================
// APPLICATION STATE
// =============================================================================

// GlobalOptions holds the persistent flags.
type GlobalOptions struct {
	APIURL     string
	ConfigPath string
	LogLevel   string
	Backend    string
	EnvFile    string
}

// App carries what every command needs once setup has run.
type App struct {
	Options GlobalOptions
	Config  *config.Config
	Logger  *logrus.Logger
	Client  *api.Client

	In  io.Reader
	Out io.Writer
	Err io.Writer

	logCloser io.Closer
	journal   *journal.Store
	exportDir string
}

// Setup loads .env and the config file, applies flags on top, and builds
// the logger and the API client. Precedence is flag, environment, file,
// then built-in default.
func (a *App) Setup() error {
	if err := config.LoadDotEnv(a.Options.EnvFile); err != nil {
		return &ConfigError{Err: err}
	}

	var cfg *config.Config
	var err error
	if a.Options.ConfigPath != "" {
		cfg, err = config.LoadFromPath(a.Options.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Err: err}
	}

	if a.Options.APIURL != "" {
		cfg.API.BaseURL = a.Options.APIURL
	}
	if a.Options.Backend != "" {
		cfg.API.ChatBackend = strings.ToLower(a.Options.Backend)
	}
	if a.Options.LogLevel != "" {
		cfg.Log.Level = a.Options.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetGlobal(cfg)
	a.Config = cfg

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.LogPath(),
		Format: cfg.Log.Format,
	})
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.Logger = logger
	a.logCloser = closer

	a.Client = api.NewClient(&api.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout.Std(),
		Backend: api.Backend(cfg.API.ChatBackend),
	}, logrus.NewEntry(logger))

	logger.WithFields(logrus.Fields{
		"component": "cli",
		"base_url":  cfg.API.BaseURL,
		"backend":   cfg.API.ChatBackend,
	}).Debug("configuration loaded")
	return nil
}

// Close releases the journal and the log file.
func (a *App) Close() error {
	if a.journal != nil {
		a.journal.Close()
		a.journal = nil
	}
	if a.logCloser != nil {
		err := a.logCloser.Close()
		a.logCloser = nil
		return err
	}
	return nil
}

func (a *App) exportDirOrDefault() string {
	if a.exportDir != "" {
		return a.exportDir
	}
	return "."
}

// logEntry is the base entry handed to controllers, which add their own
// component field.
func (a *App) logEntry() *logrus.Entry {
	if a.Logger == nil {
		return logging.Discard()
	}
	return logrus.NewEntry(a.Logger)
}

func (a *App) entry(component string) *logrus.Entry {
	if a.Logger == nil {
		return logging.Discard()
	}
	return logging.Component(a.Logger, component)
}

// NewConversation builds a conversation controller on the API client.
func (a *App) NewConversation() *conversation.Controller {
	return conversation.New(a.Client, a.logEntry())
}

// NewTraining builds a training controller on the API client. Finished
// submissions are journalled when the journal is enabled.
func (a *App) NewTraining(onReset func()) *training.Controller {
	return training.New(a.Client, training.Options{
		ResetDelay:          a.Config.Training.ResetDelay.Std(),
		ClosePanelOnSuccess: a.Config.Training.CloseOnSuccess,
		OnReset:             onReset,
		OnResult:            a.recordResult,
	}, a.logEntry())
}

// Journal opens the configured journal once per run.
func (a *App) Journal() (*journal.Store, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	path, err := a.Config.JournalPath()
	if err != nil {
		return nil, err
	}
	store, err := journal.Open(path, a.entry("journal"))
	if err != nil {
		return nil, err
	}
	a.journal = store
	return store, nil
}

func (a *App) recordResult(r training.Result) {
	if !a.Config.Journal.Enabled {
		return
	}
	log := a.entry("journal")
	store, err := a.Journal()
	if err != nil {
		log.WithError(err).Warn("journal unavailable")
		return
	}
	if _, err := store.Record(context.Background(), journal.EntryFromResult(r)); err != nil {
		log.WithError(err).Warn("failed to record training submission")
	}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "ragchat",
		Short: "Terminal client for a RAG chat and QLoRA training service",
		Long: `ragchat talks to a remote retrieval-augmented chat service.

With no subcommand it opens the full-screen chat when stdout is a terminal
and a plain line-mode chat otherwise. Ctrl+T in the full-screen chat opens
the training panel, which submits labeled examples to the QLoRA endpoint.

Configuration lives in ~/.ragchat/config.toml. RAGCHAT_* environment
variables and a .env file in the working directory override it, and flags
override both.`,
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ConfigureColors()
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return app.Setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsStdoutTTY() && IsTTY() {
				return app.RunTUI()
			}
			return app.RunChat(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.Options.APIURL, "api-url", "", "service base URL (overrides RAGCHAT_API_URL and api.base_url)")
	flags.StringVar(&app.Options.ConfigPath, "config", "", "config file (default ~/.ragchat/config.toml)")
	flags.StringVar(&app.Options.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&app.Options.Backend, "backend", "", "chat backend: rag or qlora")
	flags.StringVar(&app.Options.EnvFile, "env-file", ".env", "dotenv file loaded before environment overrides")

	root.AddCommand(
		newChatCmd(app),
		newAskCmd(app),
		newTrainCmd(app),
		newHealthCmd(app),
		newJobsCmd(app),
		newConfigCmd(app),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	app := &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	defer app.Close()

	root := NewRootCmd(app)
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	if err := root.ExecuteContext(context.Background()); err != nil {
		DisplayError(app.Err, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
