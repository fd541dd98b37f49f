package repository

import "errors"

var (
	// ErrSnapshotNotFound is returned when no catalog snapshot has been stored yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrKeyNotFound is returned by key-value stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)
