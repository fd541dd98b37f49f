package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Houeta/shopwatch/internal/repository"
	badgerdb "github.com/dgraph-io/badger/v4"
)

// Store is a byte-oriented key-value store on top of badger.
type Store struct {
	db  *badgerdb.DB
	log *slog.Logger
}

// NewStore opens (or creates) the badger directory at path.
func NewStore(log *slog.Logger, path string) (*Store, error) {
	return open(log, badgerdb.DefaultOptions(path))
}

// NewInMemoryStore opens a store that keeps everything in memory.
func NewInMemoryStore(log *slog.Logger) (*Store, error) {
	return open(log, badgerdb.DefaultOptions("").WithInMemory(true))
}

func open(log *slog.Logger, opts badgerdb.Options) (*Store, error) {
	db, err := badgerdb.Open(opts.WithLogger(logAdapter{log: log}))
	if err != nil {
		return nil, fmt.Errorf("error opening key-value store: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Get returns the value stored under key or repository.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	const opn = "repository.badger.Get"

	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, repository.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", opn, key, err)
	}

	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	const opn = "repository.badger.Put"

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", opn, key, err)
	}

	return nil
}

// Sync flushes written values to disk.
func (s *Store) Sync() error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("repository.badger.Sync: %w", err)
	}

	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.Error("failed to close the key-value store", "op", "repository.badger.Close", "error", err)
		return fmt.Errorf("failed to close the key-value store: %w", err)
	}

	return nil
}

// logAdapter routes badger's internal logging to slog. Info and debug chatter is dropped.
type logAdapter struct {
	log *slog.Logger
}

func (l logAdapter) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l logAdapter) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l logAdapter) Infof(string, ...any) {}

func (l logAdapter) Debugf(string, ...any) {}
