package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cratewatch/internal/config"
	"cratewatch/internal/daemon"
	"cratewatch/internal/logging"
	"cratewatch/internal/notifications"
	"cratewatch/internal/preflight"
	"cratewatch/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync and drain loops in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logPreflightSnapshot(signalCtx, logger, cfg)

			store, err := queue.Open(signalCtx, cfg)
			if err != nil {
				logging.ErrorWithContext(logger, "open queue store", "queue_open_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check queue.driver and queue.path or queue.dsn"),
				)
				return err
			}
			defer store.Close()

			w, err := newWorker(cfg, store, logger)
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			d, err := daemon.New(cfg, newSynchronizer(cfg, store, logger), w, store, logger,
				daemon.WithNotifier(notifier),
			)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Stop()

			logger.Info("cratewatch daemon running",
				logging.String("index", cfg.Index.Path),
				logging.String("queue_driver", store.Driver()),
				logging.String("queue", store.Target()),
				logging.Bool("notifications", notifications.Enabled(notifier)),
			)
			<-signalCtx.Done()
			logger.Info("cratewatch daemon shutting down")
			return nil
		},
	}
}

func logPreflightSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, r := range preflight.RunAll(ctx, cfg) {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run `cratewatch preflight` for the full report"),
			logging.String(logging.FieldImpact, "passes depending on this check will fail until it is fixed"),
		)
	}
}
