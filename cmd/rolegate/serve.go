// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/server"
	"github.com/rolegate/rolegate/pkg/errutil"
)

// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve permission decisions over HTTP",
		Long: `Serve loads the role definitions and exposes permission checks,
role introspection, Prometheus metrics and health probes over HTTP.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8180", "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	e, cleanup, err := newEvaluator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.NewServer(cfg.Addr, e, func() bool {
		return len(e.Roles()) > 0
	})

	errCh, err := srv.Start()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err, open := <-errCh:
		if open && err != nil {
			errutil.LogError(slog.Default(), "decision server failed", err)
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}
