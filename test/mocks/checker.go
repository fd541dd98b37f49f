package mocks

import (
	"context"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// CatalogSource is a testify mock for checker.CatalogSource.
type CatalogSource struct {
	mock.Mock
}

// NewCatalogSource creates a mock that asserts its expectations on cleanup.
func NewCatalogSource(t testingT) *CatalogSource {
	m := &CatalogSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Merge provides a mock function.
func (m *CatalogSource) Merge(ctx context.Context) (models.Catalog, error) {
	ret := m.Called(ctx)

	var catalog models.Catalog
	if fn, ok := ret.Get(0).(func(context.Context) models.Catalog); ok {
		catalog = fn(ctx)
	} else if ret.Get(0) != nil {
		catalog = ret.Get(0).(models.Catalog)
	}

	return catalog, ret.Error(1)
}

// SnapshotRepository is a testify mock for sqlite.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

// NewSnapshotRepository creates a mock that asserts its expectations on cleanup.
func NewSnapshotRepository(t testingT) *SnapshotRepository {
	m := &SnapshotRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// LoadLatest provides a mock function.
func (m *SnapshotRepository) LoadLatest(ctx context.Context) (*models.Snapshot, error) {
	ret := m.Called(ctx)

	var snap *models.Snapshot
	if ret.Get(0) != nil {
		snap = ret.Get(0).(*models.Snapshot)
	}

	return snap, ret.Error(1)
}

// WriteNew provides a mock function.
func (m *SnapshotRepository) WriteNew(ctx context.Context, catalog models.Catalog) (*models.Snapshot, error) {
	ret := m.Called(ctx, catalog)

	var snap *models.Snapshot
	if ret.Get(0) != nil {
		snap = ret.Get(0).(*models.Snapshot)
	}

	return snap, ret.Error(1)
}

// Prune provides a mock function.
func (m *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	ret := m.Called(ctx, keep)

	return ret.Get(0).(int64), ret.Error(1)
}

// Notifier is a testify mock for checker.Notifier.
type Notifier struct {
	mock.Mock
}

// NewNotifier creates a mock that asserts its expectations on cleanup.
func NewNotifier(t testingT) *Notifier {
	m := &Notifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Notify provides a mock function.
func (m *Notifier) Notify(ctx context.Context, diff models.ItemDiff) error {
	return m.Called(ctx, diff).Error(0)
}
