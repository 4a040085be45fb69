// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway health",
		Long:  "Check the running gateway's health endpoint and display overall and per-component status.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8385", "gateway address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	gw := newGatewayClient(addr)
	var body struct {
		Overall    string            `json:"overall"`
		Components map[string]string `json:"components"`
		CheckedAt  time.Time         `json:"checked_at"`
	}
	if err := gw.getJSON("/v1/health", &body); err != nil {
		if stratumerr.HasCode(err, stratumerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, body.Overall)

	components := make([]string, 0, len(body.Components))
	for name := range body.Components {
		components = append(components, name)
	}
	sort.Strings(components)
	for _, name := range components {
		_, _ = fmt.Fprintf(out, "  %-12s %s\n", name, body.Components[name])
	}

	return nil
}
