package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/shopwatch/internal/services/checker"
	"github.com/robfig/cron/v3"
)

// botRunner is a long-polling bot that can be started and stopped.
type botRunner interface {
	Start()
	Stop()
}

// runScheduled runs chk on spec until ctx is canceled. A run that is still going when the
// next tick fires causes that tick to be skipped. The bot, if any, polls meanwhile.
func runScheduled(ctx context.Context, log *slog.Logger, spec string, chk checker.Interface, poller botRunner) error {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))

	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := scheduler.AddFunc(spec, func() {
		if _, runErr := chk.CheckForUpdates(ctx); runErr != nil {
			log.ErrorContext(ctx, "Scheduled check failed", "error", runErr)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	scheduler.Start()
	if poller != nil {
		go poller.Start()
	}
	log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "schedule", spec)

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	if poller != nil {
		poller.Stop()
	}
	<-scheduler.Stop().Done()

	return nil
}
