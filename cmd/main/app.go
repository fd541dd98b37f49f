package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Houeta/shopwatch/internal/bot"
	"github.com/Houeta/shopwatch/internal/cdn"
	"github.com/Houeta/shopwatch/internal/config"
	"github.com/Houeta/shopwatch/internal/notifier"
	"github.com/Houeta/shopwatch/internal/parser"
	"github.com/Houeta/shopwatch/internal/repository/badger"
	"github.com/Houeta/shopwatch/internal/repository/sqlite"
	"github.com/Houeta/shopwatch/internal/services/checker"
	"github.com/Houeta/shopwatch/internal/services/crawler"
	"github.com/Houeta/shopwatch/internal/services/imagecache"
	"github.com/Houeta/shopwatch/internal/services/merger"
)

// app holds every long-lived dependency of one process.
type app struct {
	checker *checker.Checker
	bot     *bot.Bot // nil when no Telegram token is configured
	closers []func() error
}

func newApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*app, error) {
	a := &app{}

	if err := os.MkdirAll(cfg.StoragePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", cfg.StoragePath, err)
	}

	repo, err := sqlite.NewRepository(ctx, log, cfg.SnapshotDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	a.closers = append(a.closers, repo.Close)

	kv, err := badger.NewStore(log, cfg.ImageCachePath())
	if err != nil {
		a.close(log)
		return nil, fmt.Errorf("failed to open image cache: %w", err)
	}
	a.closers = append(a.closers, kv.Close)

	source, err := parser.NewPageSource(log, parser.Options{
		BaseURL:           cfg.BaseURL,
		Cookie:            cfg.Cookie,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Crawl.HTTPTimeout,
		RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
	})
	if err != nil {
		a.close(log)
		return nil, err
	}

	images := imagecache.New(log, kv, cdn.NewClient(log, cfg.CDN.BaseURL, cfg.CDN.Key, cfg.Crawl.HTTPTimeout))
	catalogMerger := merger.New(
		log,
		crawler.NewCrawler(log, source, cfg.Crawl.DetailWorkers),
		images,
		cfg.Crawl.ImageWorkers,
	)

	var secondary []notifier.Transport
	if cfg.Tg.Token != "" {
		a.bot, err = bot.NewBot(log, cfg.Tg.Token, cfg.Tg.Timeout, repo)
		if err != nil {
			a.close(log)
			return nil, err
		}
		secondary = append(secondary, a.bot)
	}

	ntf := notifier.New(log, notifier.NewWebhook(log, cfg.WebhookURL, cfg.Crawl.HTTPTimeout), secondary...)
	a.checker = checker.NewChecker(log, catalogMerger, repo, ntf, cfg.Retention)

	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(log *slog.Logger) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		log.Error("Failed to release resources", "error", err)
	}
}

// run performs one check, or keeps checking on cfg.Schedule until ctx is canceled.
func run(ctx context.Context, log *slog.Logger, cfg *config.Config) error {
	a, err := newApp(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer a.close(log)

	if cfg.Schedule == "" {
		diff, err := a.checker.CheckForUpdates(ctx)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "Check finished",
			"added", len(diff.Added), "updated", len(diff.Updated), "removed", len(diff.Removed))
		return nil
	}

	var poller botRunner
	if a.bot != nil {
		poller = a.bot
	}

	return runScheduled(ctx, log, cfg.Schedule, a.checker, poller)
}
