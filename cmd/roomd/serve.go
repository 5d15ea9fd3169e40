package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/config"
	"github.com/groblegark/roomstore/internal/events"
	"github.com/groblegark/roomstore/internal/ingest"
	"github.com/groblegark/roomstore/internal/ordering"
	"github.com/groblegark/roomstore/internal/store/postgres"
	roomsync "github.com/groblegark/roomstore/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the room store ingest daemon",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		// Recover the sequence counter from the journal.
		assigner, err := ordering.Recover(context.Background(), store)
		if err != nil {
			store.Close()
			return err
		}
		logger.Info("ordering recovered", "last_stream_ordering", assigner.LastSeq())

		// Create event publisher.
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
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (ROOMSTORE_NATS_URL not set)")
		}

		ingester := ingest.New(store, assigner, publisher, logger)

		// Re-drive events persisted but not fanned out before the last stop.
		redriven, err := ingester.Redrive(context.Background())
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}
		if redriven > 0 {
			logger.Info("re-drove unprocessed events", "count", redriven)
		}

		// Start the ingest subscriber if NATS is available.
		var ingestCancel context.CancelFunc
		if cfg.NATSURL != "" {
			ingestSub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create ingest subscriber", "err", err)
			} else {
				var ingestCtx context.Context
				ingestCtx, ingestCancel = context.WithCancel(context.Background())
				go func() {
					if err := ingester.StartSubscriber(ingestCtx, ingestSub); err != nil {
						logger.Error("ingest subscriber error", "err", err)
					}
					ingestSub.Close()
				}()
			}
		}

		// Start sync scheduler if any destinations are configured.
		var scheduler *roomsync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []roomsync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := roomsync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				gitDest := roomsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
				dests = append(dests, gitDest)
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = roomsync.NewScheduler(store, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("room store started", "server_name", cfg.ServerName)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if ingestCancel != nil {
			ingestCancel()
			logger.Info("ingest subscriber stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
