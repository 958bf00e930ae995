package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cfgseed/internal/config"
	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/logging"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/provision"
	"github.com/alfredjeanlab/cfgseed/internal/server"
	"github.com/alfredjeanlab/cfgseed/internal/store/postgres"
	cfgsync "github.com/alfredjeanlab/cfgseed/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the cfgseed HTTP and gRPC servers",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := logging.Init(logging.Options{Env: cfg.Env, Format: cfg.LogFormat, Level: cfg.LogLevel})

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{Logger: logger}
			logger.Info("events disabled (CFGSEED_NATS_URL not set)")
		}

		// The watcher's reload callback fires only after Start, by which
		// time srv is set.
		var (
			srv     *server.Server
			src     policy.Source
			watcher *policy.Watcher
		)
		if cfg.PolicyFile != "" {
			watcher, err = policy.NewWatcher(cfg.PolicyFile, logger, func(p *policy.Policy) {
				srv.PolicyReloaded(p)
			})
			if err != nil {
				publisher.Close()
				store.Close()
				return err
			}
			src = watcher
			logger.Info("policy loaded", "path", cfg.PolicyFile, "version", watcher.Current().Version)
		} else {
			src = policy.Static(policy.Default())
			logger.Info("using built-in policy", "version", policy.BuiltinVersion)
		}

		prov := provision.New(store, src, publisher, logger)
		srv = server.New(store, prov, src, publisher, logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if watcher != nil {
			watcher.Start(ctx)
		}

		grpcServer := server.NewGRPCServer(srv, cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()

		scheduler := startSync(ctx, cfg, store, src, logger)

		if cfg.AuthToken == "" {
			logger.Warn("auth disabled (CFGSEED_AUTH_TOKEN not set)")
		}
		logger.Info("cfgseed server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				logger.Error("error closing policy watcher", "error", err)
			}
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "error", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startSync starts the export scheduler when an interval and at least one
// destination are configured. It returns nil otherwise.
func startSync(ctx context.Context, cfg *config.Config, store *postgres.PostgresStore, src policy.Source, logger *slog.Logger) *cfgsync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}

	var dests []cfgsync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := cfgsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "error", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync destination enabled", "destination", s3Dest.Name())
		}
	}
	if cfg.SyncGitRepo != "" {
		gitDest := cfgsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
		dests = append(dests, gitDest)
		logger.Info("sync destination enabled", "destination", gitDest.Name())
	}
	if len(dests) == 0 {
		logger.Warn("sync interval set but no destinations configured")
		return nil
	}

	scheduler := cfgsync.NewScheduler(store, src, dests, cfg.SyncInterval, logger)
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}

func init() {
	serveCmd.Flags().String("env-file", ".env", "optional dotenv file loaded before reading CFGSEED_* variables")
}
