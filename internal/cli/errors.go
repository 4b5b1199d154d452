// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error classification and display for ragchat commands.
//
// Commands always return errors; Execute prints them once and maps them to
// an exit code.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/config"
	"github.com/jeranaias/ragchat/internal/dataset"
	"github.com/jeranaias/ragchat/internal/journal"
	"github.com/jeranaias/ragchat/internal/training"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError covers bad arguments and unusable input files.
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitNotFound     = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command usage or arguments.
type UsageError struct {
	Field  string
	Value  string
	Reason string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	return msg
}

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ChatError reports a failed chat request by kind only. The cause stays
// reachable for exit-code mapping but its text (server detail included) is
// left to the log file.
type ChatError struct {
	Err error
}

func (e *ChatError) Error() string {
	kind := api.ErrTypeUnknown
	var clientErr *api.ClientError
	if errors.As(e.Err, &clientErr) {
		kind = clientErr.Type
	}
	return "chat request failed (" + kind.String() + "); see the log file for details"
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	var clientErr *api.ClientError

	switch {
	case errors.As(err, &usageErr),
		errors.Is(err, dataset.ErrEmpty),
		errors.Is(err, training.ErrNoValidExamples):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.Is(err, journal.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &clientErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err to w in the error color.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorColor.Sprint("[Error]"), err)
}
