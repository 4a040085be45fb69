// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stratum-ai/stratum/internal/config"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stratum gateway",
		Long:  "Load configuration, initialize all subsystems, and start the HTTP server.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return stratumerr.Wrap(err, stratumerr.CodeCLISetupFailure, "loading config")
	}

	// Flag wins over env and file.
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := WireStack(ctx, cfg)
	if err != nil {
		return err
	}

	stack.Monitor.Start(ctx)
	defer stack.Monitor.Stop()

	slog.Info("starting stratum", "listen", cfg.Server.Listen, "providers", len(cfg.Providers))
	return stack.Server.Start(ctx)
}
