package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/app"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/server"
	"github.com/aatumaykin/ssrworker/internal/version"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP worker (main command)",
	Long: `Start the execution pool and the HTTP API in front of it.
The server stops gracefully on SIGINT or SIGTERM: in-flight requests finish,
then the pool is terminated.`,
	Args: cobra.NoArgs,
	RunE: serveHandler,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override server.addr")
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	logger.SetDefault(log)

	log.Info("starting ssrworker",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "addr", Value: cfg.Server.Addr},
		logger.Field{Key: "pool_size", Value: cfg.Pool.Size},
		logger.Field{Key: "metrics", Value: cfg.Metrics.Enabled})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, log)
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() { _ = a.Shutdown() }()

	pool, err := a.Pool()
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, pool, log.With(logger.Field{Key: "component", Value: "http"}), server.Options{
		Views:    a.ViewNames(),
		Registry: a.Registry(),
	})

	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("shutdown signal received")
	}
	return nil
}
