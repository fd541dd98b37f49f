package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/repository"
)

// LoadLatest returns the most recently written snapshot.
func (r *Repository) LoadLatest(ctx context.Context) (*models.Snapshot, error) {
	const opn = "repository.sqlite.LoadLatest"

	var (
		snap      models.Snapshot
		createdAt int64
		payload   []byte
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, created_at, payload FROM snapshots ORDER BY id DESC LIMIT 1",
	).Scan(&snap.ID, &createdAt, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%s: failed to query latest snapshot: %w", opn, err)
	}

	if err = json.Unmarshal(payload, &snap.Catalog); err != nil {
		return nil, fmt.Errorf("%s: failed to decode snapshot %d: %w", opn, snap.ID, err)
	}
	snap.CreatedAt = time.UnixMilli(createdAt).UTC()
	models.SortCatalog(snap.Catalog)

	return &snap, nil
}

// WriteNew stores catalog as a new snapshot and returns it. Earlier snapshots are kept.
func (r *Repository) WriteNew(ctx context.Context, catalog models.Catalog) (*models.Snapshot, error) {
	const opn = "repository.sqlite.WriteNew"

	if catalog == nil {
		catalog = models.Catalog{}
	}
	payload, err := json.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode catalog: %w", opn, err)
	}

	createdAt := r.now().UTC().Truncate(time.Millisecond)

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // returns sql.ErrTxDone after a successful commit

	res, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (created_at, item_count, payload) VALUES (?, ?, ?)",
		createdAt.UnixMilli(), len(catalog), payload,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to insert snapshot: %w", opn, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read snapshot id: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	r.log.Debug("Snapshot written", "op", opn, "id", id, "items", len(catalog))

	return &models.Snapshot{ID: id, CreatedAt: createdAt, Catalog: catalog}, nil
}

// Prune deletes all but the newest keep snapshots and reports how many were removed.
// A keep below one is treated as one so the latest snapshot always survives.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	const opn = "repository.sqlite.Prune"

	if keep < 1 {
		keep = 1
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)",
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete old snapshots: %w", opn, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to count deleted snapshots: %w", opn, err)
	}

	return removed, nil
}
