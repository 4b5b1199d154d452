// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat/internal/journal"
	"github.com/jeranaias/ragchat/internal/util"
)

// statusColumnWidth is where job status text is truncated in the table.
const statusColumnWidth = 48

func newJobsCmd(app *App) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs [id]",
		Short: "List journalled training submissions",
		Long: `List training submissions recorded in the local journal, newest first.
With an ID, show that one submission. Recording requires journal.enabled
(or RAGCHAT_JOURNAL=1).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store, err := app.Journal()
			if err != nil {
				return err
			}
			if !app.Config.Journal.Enabled {
				printWarning(cmd.ErrOrStderr(), "journal is disabled; new submissions are not recorded")
			}

			var entries []journal.Entry
			if len(args) == 1 {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = []journal.Entry{e}
			} else {
				entries, err = store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			if asJSON {
				if entries == nil {
					entries = []journal.Entry{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printJobs(out, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func printJobs(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		printInfo(w, "No training submissions recorded.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-16s  %-8s  %8s  %s\n",
		"ID", "SUBMITTED", "OUTCOME", "EXAMPLES", "STATUS")
	for _, e := range entries {
		outcome := successColor.Sprint(util.PadRight(string(e.Outcome), 8))
		if e.Outcome != journal.OutcomeAccepted {
			outcome = errorColor.Sprint(util.PadRight(string(e.Outcome), 8))
		}
		fmt.Fprintf(w, "%-8s  %-16s  %s  %8d  %s\n",
			util.SafeSubstring(e.ID, 0, 8),
			e.SubmittedAt.Local().Format("2006-01-02 15:04"),
			outcome,
			e.ExampleCount,
			util.TruncateWidth(util.SingleLine(e.Status), statusColumnWidth))
		if e.OutputDir != "" {
			printInfo(w, "          output %s, took %s", e.OutputDir, e.Duration.Round(time.Millisecond))
		}
	}
}
