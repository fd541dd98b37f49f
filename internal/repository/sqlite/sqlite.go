package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/shopwatch/internal/models"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SnapshotRepository persists catalog snapshots.
type SnapshotRepository interface {
	LoadLatest(ctx context.Context) (*models.Snapshot, error)
	WriteNew(ctx context.Context, catalog models.Catalog) (*models.Snapshot, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// SubscriptionRepository stores chats that receive notifications.
type SubscriptionRepository interface {
	SubscribeChat(ctx context.Context, chatID int64) error
	UnsubscribeChat(ctx context.Context, chatID int64) error
	GetSubscribedChats(ctx context.Context) ([]int64, error)
}

// Repository is the sqlite backed snapshot and subscription store.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewRepository opens (or creates) the database at storagePath and migrates its schema.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = dtb.PingContext(ctx); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, dtb); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log, now: time.Now}, nil
}

// NewForTest wraps an existing connection without running migrations.
func NewForTest(dtb *sql.DB) *Repository {
	return &Repository{
		db:  dtb,
		log: slog.New(slog.DiscardHandler),
		now: time.Now,
	}
}

func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		item_count INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id INTEGER PRIMARY KEY NOT NULL
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
