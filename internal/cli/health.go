// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// healthCheckTimeout bounds the health probe independently of api.timeout.
const healthCheckTimeout = 10 * time.Second

// errUnhealthy is returned when the service answers but is not healthy.
var errUnhealthy = errors.New("service reported unhealthy")

func newHealthCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the service health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
			defer cancel()

			out := cmd.OutOrStdout()
			start := time.Now()
			resp, err := app.Client.Health(ctx)
			if err != nil {
				return err
			}
			latency := time.Since(start).Round(time.Millisecond)

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"base_url":              app.Client.BaseURL(),
					"status":                resp.Status,
					"vectorstore_connected": resp.VectorstoreConnected,
					"latency_ms":            latency.Milliseconds(),
				}); err != nil {
					return err
				}
			} else {
				mark := successColor.Sprint("[OK]")
				if !resp.Healthy() {
					mark = errorColor.Sprint("[X]")
				}
				fmt.Fprintf(out, "%s %s (%s)\n", mark, app.Client.BaseURL(), latency)
				fmt.Fprintf(out, "  %-22s %s\n", "Status:", resp.Status)
				fmt.Fprintf(out, "  %-22s %t\n", "Vector store connected:", resp.VectorstoreConnected)
			}

			if !resp.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
