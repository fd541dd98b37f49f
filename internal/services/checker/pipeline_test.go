package checker_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/notifier"
	"github.com/Houeta/shopwatch/internal/repository/sqlite"
	"github.com/Houeta/shopwatch/internal/services/checker"
	"github.com/Houeta/shopwatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errBlocked = errors.New("telegram: bot was blocked by the user (403)")

type summaryRecorder struct {
	summaries []string
	err       error
}

func (r *summaryRecorder) Send(_ context.Context, msg notifier.Message) error {
	r.summaries = append(r.summaries, msg.Summary)
	return r.err
}

type staticSource struct {
	catalog models.Catalog
}

func (s staticSource) Merge(context.Context) (models.Catalog, error) {
	return s.catalog, nil
}

func TestChecker_FailingSecondaryTransportStillAdvancesBaseline(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.NewRepository(ctx, logger, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	mug := models.ShopItem{ID: 1, Title: "Mug", Prices: models.Prices{models.RegionUnitedStates: 30}}
	_, err = repo.WriteNew(ctx, models.Catalog{})
	require.NoError(t, err)

	webhook := &summaryRecorder{}
	telegram := &summaryRecorder{err: errBlocked}
	chk := checker.NewChecker(
		logger,
		staticSource{catalog: models.Catalog{mug}},
		repo,
		notifier.New(logger, webhook, telegram),
		retention,
	)

	for range 3 {
		_, err = chk.CheckForUpdates(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Shop update: 1 new, 0 updated, 0 removed"}, webhook.summaries)
	assert.Len(t, telegram.summaries, 1)

	latest, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Catalog{mug}, latest.Catalog)
}

func TestChecker_FailingWebhookKeepsBaseline(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.NewRepository(ctx, logger, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	baseline, err := repo.WriteNew(ctx, models.Catalog{})
	require.NoError(t, err)

	mug := models.ShopItem{ID: 1, Title: "Mug"}
	chk := checker.NewChecker(
		logger,
		staticSource{catalog: models.Catalog{mug}},
		repo,
		notifier.New(logger, &summaryRecorder{err: errBlocked}, &summaryRecorder{}),
		retention,
	)

	_, err = chk.CheckForUpdates(ctx)
	require.ErrorIs(t, err, errBlocked)

	latest, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, baseline.ID, latest.ID)
}

func TestChecker_PruneFailureLogsWarningOnly(t *testing.T) {
	ctx := t.Context()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	catalog := models.Catalog{{ID: 1, Title: "Mug"}}
	src := mocks.NewCatalogSource(t)
	repo := mocks.NewSnapshotRepository(t)
	ntf := mocks.NewNotifier(t)

	src.On("Merge", ctx).Return(catalog, nil).Once()
	repo.On("LoadLatest", ctx).Return(&models.Snapshot{ID: 1}, nil).Once()
	ntf.On("Notify", ctx, mock.AnythingOfType("models.ItemDiff")).Return(nil).Once()
	repo.On("WriteNew", ctx, catalog).Return(&models.Snapshot{ID: 2, Catalog: catalog}, nil).Once()
	repo.On("Prune", ctx, retention).Return(int64(0), errors.New("database is locked")).Once()

	_, err := checker.NewChecker(logger, src, repo, ntf, retention).CheckForUpdates(ctx)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Successfully stored snapshot")
	assert.Contains(t, out, "Failed to prune old snapshots")
	assert.NotContains(t, out, "Pruned old snapshots")
	assert.NotContains(t, out, "pruned=")
}
