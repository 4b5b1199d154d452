// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// train.go - Batch training submission from a dataset file.
//
// Command: train --file FILE
// Short:   Submit training examples from a file
//
// Subcommands:
//   schema    Print the JSON Schema of the examples file
//
// Examples:
//   ragchat train --file examples.jsonl
//   ragchat train --file examples.yaml --dry-run
//   ragchat train schema > examples.schema.json

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/dataset"
	"github.com/jeranaias/ragchat/internal/training"
)

// maxSkippedListed caps the skipped-example numbers printed.
const maxSkippedListed = 10

func newTrainCmd(app *App) *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Submit training examples from a file",
		Long: `Load training examples from a JSON, JSONL or YAML file and submit the
valid ones to the QLoRA training endpoint. An example is valid when both its
instruction and output are non-blank; the rest are skipped.`,
		Example: `  ragchat train --file examples.jsonl
  ragchat train --file examples.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return &UsageError{Field: "file", Reason: "--file is required"}
			}
			return app.trainFromFile(cmd, file, dryRun)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "examples file (.json, .jsonl, .yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without submitting")

	cmd.AddCommand(&cobra.Command{
		Use:         "schema",
		Short:       "Print the JSON Schema of the examples file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := dataset.SchemaJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	return cmd
}

func (a *App) trainFromFile(cmd *cobra.Command, file string, dryRun bool) error {
	out := cmd.OutOrStdout()

	examples, err := dataset.Load(file)
	if err != nil {
		return err
	}
	sum := dataset.Summarize(examples)
	fmt.Fprintf(out, "%s %d examples, %d valid\n", labelColor.Sprint("Loaded"), sum.Total, sum.Valid)
	if len(sum.Skipped) > 0 {
		printWarning(out, "Skipping incomplete examples: "+formatSkipped(sum.Skipped))
	}
	if sum.Valid == 0 {
		return training.ErrNoValidExamples
	}
	if dryRun {
		printInfo(out, "Dry run: nothing submitted.")
		return nil
	}

	train := a.NewTraining(nil)
	defer train.Close()
	if err := train.Load(examples); err != nil {
		return err
	}

	sub, err := train.Begin()
	if err != nil {
		return err
	}
	status, kind := train.Status()
	printTrainingStatus(out, status, kind)

	result := train.Finish(sub, train.Send(cmd.Context(), sub))
	printTrainingStatus(out, result.Status, result.Kind)
	if !result.OK() {
		return result.Err
	}
	if result.Response.OutputDir != "" {
		printInfo(out, "Output: %s", result.Response.OutputDir)
	}
	return nil
}

// formatSkipped lists 1-based example numbers.
func formatSkipped(idx []int) string {
	parts := make([]string, 0, maxSkippedListed+1)
	for i, n := range idx {
		if i == maxSkippedListed {
			parts = append(parts, fmt.Sprintf("and %d more", len(idx)-maxSkippedListed))
			break
		}
		parts = append(parts, fmt.Sprintf("#%d", n+1))
	}
	return strings.Join(parts, ", ")
}
