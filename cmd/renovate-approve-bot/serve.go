/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikelane/renovate-approve-bot/internal/approve"
	"github.com/mikelane/renovate-approve-bot/internal/config"
	"github.com/mikelane/renovate-approve-bot/internal/deploy"
	"github.com/mikelane/renovate-approve-bot/internal/dispatch"
	"github.com/mikelane/renovate-approve-bot/internal/secrets"
	"github.com/mikelane/renovate-approve-bot/internal/server"
)

type serveOptions struct {
	*rootOptions
	addr       string
	port       int
	deployment string
	envFile    string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GitHub webhooks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "address to listen on")
	cmd.Flags().IntVar(&opts.port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&opts.deployment, "deployment", "", "named deployment whose path and users override the environment")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", opts.envFile, err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	if opts.deployment != "" {
		deployments, err := deploy.Load(opts.deploymentsFile)
		if err != nil {
			return err
		}
		selected, err := deploy.Select(deployments, opts.deployment)
		if err != nil {
			return err
		}
		selected[0].Apply(cfg)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	tp, err := cfg.InstallTracerProvider(ctx)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	store, err := secrets.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s secret store: %w", cfg.SecretBackend, err)
	}

	o := dispatch.New(store, cfg.SSMPath, approve.Register(approve.ConfigFrom(cfg)),
		dispatch.WithLogger(logger))

	logger.Info("Serving webhooks", "path", cfg.SSMPath, "backend", cfg.SecretBackend, "port", opts.port)
	return server.NewServer(opts.addr, opts.port, o).Start(ctx)
}
