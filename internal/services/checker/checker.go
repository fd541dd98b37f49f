package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/repository"
	"github.com/Houeta/shopwatch/internal/repository/sqlite"
)

// CatalogSource produces the current merged catalog.
type CatalogSource interface {
	Merge(ctx context.Context) (models.Catalog, error)
}

// Notifier delivers a non-empty diff to the configured channels.
type Notifier interface {
	Notify(ctx context.Context, diff models.ItemDiff) error
}

// Checker is an orchestrator that performs a full verification cycle.
type Checker struct {
	log       *slog.Logger
	source    CatalogSource
	repo      sqlite.SnapshotRepository
	notifier  Notifier
	retention int
}

// Interface is the run entry point used by the scheduler.
type Interface interface {
	// CheckForUpdates performs one crawl, diff and notify cycle.
	CheckForUpdates(ctx context.Context) (*models.ItemDiff, error)
}

// NewChecker creates a new Checker instance that keeps the newest retention snapshots.
func NewChecker(
	log *slog.Logger,
	source CatalogSource,
	repo sqlite.SnapshotRepository,
	notifier Notifier,
	retention int,
) *Checker {
	return &Checker{log: log, source: source, repo: repo, notifier: notifier, retention: retention}
}

// CheckForUpdates merges the current catalog, compares it with the latest snapshot and
// notifies about the difference. The new snapshot is written only after the notifier accepted
// the diff, so a failed run leaves the previous baseline in place.
func (c *Checker) CheckForUpdates(ctx context.Context) (*models.ItemDiff, error) {
	const opn = "checker.CheckForUpdates"
	log := c.log.With("op", opn)

	log.InfoContext(ctx, "Merging catalog across regions")
	catalog, err := c.source.Merge(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to merge catalog: %w", opn, err)
	}

	previous, err := c.repo.LoadLatest(ctx)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		log.InfoContext(ctx, "No previous snapshot. Storing baseline without notifying", "items", len(catalog))
		if err = c.store(ctx, catalog); err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}
		return &models.ItemDiff{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load previous snapshot: %w", opn, err)
	}

	diff := Diff(previous.Catalog, catalog)
	log.InfoContext(
		ctx,
		"Change detection complete",
		"baseline",
		previous.ID,
		"added",
		len(diff.Added),
		"removed",
		len(diff.Removed),
		"updated",
		len(diff.Updated),
	)

	if diff.IsEmpty() {
		log.InfoContext(ctx, "Catalog has not changed. No updates.")
		return &diff, nil
	}

	if err = c.notifier.Notify(ctx, diff); err != nil {
		return nil, fmt.Errorf("%s: failed to notify: %w", opn, err)
	}

	if err = c.store(ctx, catalog); err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return &diff, nil
}

func (c *Checker) store(ctx context.Context, catalog models.Catalog) error {
	snap, err := c.repo.WriteNew(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	log := c.log.With("op", "checker.store")
	log.InfoContext(ctx, "Successfully stored snapshot", "id", snap.ID)

	removed, err := c.repo.Prune(ctx, c.retention)
	if err != nil {
		// The new snapshot is already committed; old ones are retried next run.
		log.WarnContext(ctx, "Failed to prune old snapshots", "error", err)
		return nil
	}
	log.DebugContext(ctx, "Pruned old snapshots", "pruned", removed, "keep", c.retention)

	return nil
}
