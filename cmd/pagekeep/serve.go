// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pagekeep/pagekeep/internal/config"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/pagekeep/pagekeep/internal/observability"
	"github.com/pagekeep/pagekeep/internal/rpc"
	"github.com/pagekeep/pagekeep/internal/session"
	sessionpg "github.com/pagekeep/pagekeep/internal/session/postgres"
	"github.com/pagekeep/pagekeep/internal/store"
	"github.com/pagekeep/pagekeep/internal/user"
	userpg "github.com/pagekeep/pagekeep/internal/user/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RPC server",
		Long: `Start the RPC server which handles authentication, sessions,
user accounts, and the login audit trail over framed JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrapf(err, "loading configuration")
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("listen-addr", config.DefaultListenAddr, "RPC listen address")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL)")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().Int("max-parallel", config.DefaultMaxParallel, "maximum in-flight requests per connection set")

	return cmd
}

// runServe wires the service together and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("pagekeep", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting server",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
		"max_parallel", cfg.MaxParallel,
	)

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrapf(err, "connecting to database")
	}
	defer pool.Close()

	logger.Info("connected to database")

	users := userpg.NewUserRepository(pool)
	userService, err := user.NewService(users, user.NewArgon2idHasher())
	if err != nil {
		return err
	}

	attempts := sessionpg.NewAttemptRepository(pool)
	sessions := sessionpg.NewSessionRepository(pool)
	transactor := sessionpg.NewTransactor(pool)

	manager, err := session.NewManager(userService, userService, attempts, sessions, transactor,
		session.WithLogger(logger))
	if err != nil {
		return err
	}

	handler, err := rpc.NewHandler(manager, userService, logger)
	if err != nil {
		return err
	}
	server := rpc.NewServer(cfg.ListenAddr, handler, cfg.MaxParallel, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server is optional.
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrapf(err, "starting observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	cmd.Println("Server started")
	logger.Info("server ready", "listen_addr", cfg.ListenAddr)

	serverDone := false
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrapf(err, "rpc server terminated")
		}
		serverDone = true
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	// Wait for the RPC server to drain its connections.
	if !serverDone {
		select {
		case <-errChan:
		case <-shutdownCtx.Done():
			logger.Warn("timed out waiting for rpc server to stop")
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the run context when a background server fails.
// It exits when an error arrives, the channel closes, or the context ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
