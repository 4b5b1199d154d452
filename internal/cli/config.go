// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for ragchat.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one effective value
//   set <key> <value>   Write a value to the config file
//   init                Write a default config file
//   path                Show the config file path
//
// Examples:
//   ragchat config show --json
//   ragchat config set api.chat_backend qlora
//   ragchat config set training.reset_delay 5s
//   ragchat config init --force

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	var asJSON bool

	show := func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), app.Config, asJSON)
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long: `View and modify the ragchat configuration.

Keys use dot notation: ` + strings.Join(config.GetAllKeys(), ", ") + `.`,
		Args: cobra.NoArgs,
		RunE: show,
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "output in JSON format")

	noSetup := map[string]string{skipSetup: "true"}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Display the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one effective configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := app.Config.Get(args[0])
				if err != nil {
					return &UsageError{Field: "key", Value: args[0], Reason: err.Error()}
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:         "set <key> <value>",
			Short:       "Write a value to the config file",
			Args:        cobra.ExactArgs(2),
			Annotations: noSetup,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfigValue(cmd.OutOrStdout(), app.Options.ConfigPath, args[0], args[1])
			},
		},
		newConfigInitCmd(app),
		&cobra.Command{
			Use:         "path",
			Short:       "Show the config file path",
			Args:        cobra.NoArgs,
			Annotations: noSetup,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(app.Options.ConfigPath)
				if err != nil {
					return err
				}
				if asJSON {
					_, statErr := os.Stat(path)
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"path":   path,
						"exists": statErr == nil,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					printInfo(cmd.ErrOrStderr(), "(file does not exist; run 'ragchat config init' to create it)")
				}
				return nil
			},
		},
	)
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(app.Options.ConfigPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Field: "config file", Value: path, Reason: "already exists (use --force to overwrite)"}
			}
			if err := writeConfigFile(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", successColor.Sprint("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// configFilePath is the --config path or the default TOML location.
func configFilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

func writeConfigFile(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ConfigError{Err: err}
	}
	save := config.SaveTOML
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		save = config.SaveJSON
	}
	if err := save(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// setConfigValue edits the file itself, so environment overrides active in
// this process are not persisted.
func setConfigValue(w io.Writer, override, key, value string) error {
	path, err := configFilePath(override)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if strings.HasSuffix(strings.ToLower(path), ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return &ConfigError{Err: err}
		}
	}

	key = strings.ToLower(strings.TrimSpace(key))
	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Field: "key", Value: key, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := writeConfigFile(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s\n", successColor.Sprint("[OK]"), key, value)
	return nil
}

func showConfig(w io.Writer, cfg *config.Config, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	data, err := cfg.MarshalTOML()
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(data))
	return nil
}
