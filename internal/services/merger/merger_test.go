package merger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/services/crawler"
	"github.com/Houeta/shopwatch/internal/services/imagecache"
	"github.com/Houeta/shopwatch/internal/services/merger"
	"github.com/Houeta/shopwatch/test/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCrawler serves canned results per region and records the crawl order.
type fakeCrawler struct {
	mu       sync.Mutex
	results  map[models.Region]*crawler.RegionResult
	fail     map[models.Region]error
	tokenErr error
	order    []models.Region
}

func (f *fakeCrawler) CSRFToken(context.Context) (string, error) {
	return "tok", f.tokenErr
}

func (f *fakeCrawler) CrawlRegion(_ context.Context, region models.Region, token string) (*crawler.RegionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, region)

	if token != "tok" {
		return nil, errors.New("bad token")
	}
	if err := f.fail[region]; err != nil {
		return nil, err
	}
	if res, ok := f.results[region]; ok {
		return res, nil
	}

	return &crawler.RegionResult{Region: region}, nil
}

// fakeResolver maps origin ids to CDN URLs.
type fakeResolver struct {
	mu       sync.Mutex
	calls    map[int64]int
	err      error
	flushErr error
	flushed  int
}

func (f *fakeResolver) Flush() error {
	f.flushed++
	return f.flushErr
}

func (f *fakeResolver) Resolve(_ context.Context, originID int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[int64]int)
	}
	f.calls[originID]++
	if f.err != nil {
		return "", f.err
	}

	return "https://cdn.test/" + string(rune('a'+originID%26)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMerger(c merger.RegionCrawler, r merger.ImageResolver) *merger.Merger {
	return merger.New(discardLogger(), c, r, 2)
}

func item(id int64, price uint32) crawler.RawItem {
	return crawler.RawItem{
		ID:       models.ItemID(id),
		Title:    "Item",
		Price:    price,
		ImageURL: fixtures.BlobImageURL(100 + id),
		BuyURL:   fixtures.OrderPath(id),
	}
}

func TestMerger_Merge(t *testing.T) {
	c := &fakeCrawler{results: map[models.Region]*crawler.RegionResult{
		models.RegionUnitedStates: {Region: models.RegionUnitedStates, Items: []crawler.RawItem{item(3, 10), item(1, 5)}},
		models.RegionEurope:       {Region: models.RegionEurope, Items: []crawler.RawItem{item(1, 6)}},
		models.RegionGlobal:       {Region: models.RegionGlobal, Items: []crawler.RawItem{item(2, 7)}},
	}}
	r := &fakeResolver{}

	catalog, err := newMerger(c, r).Merge(t.Context())
	require.NoError(t, err)

	assert.Equal(t, models.Regions, c.order)

	require.Len(t, catalog, 3)
	assert.Equal(t, models.ItemID(1), catalog[0].ID)
	assert.Equal(t, models.ItemID(2), catalog[1].ID)
	assert.Equal(t, models.ItemID(3), catalog[2].ID)

	assert.Equal(t, models.Prices{models.RegionUnitedStates: 5, models.RegionEurope: 6}, catalog[0].Prices)
	assert.Equal(t, models.Prices{models.RegionGlobal: 7}, catalog[1].Prices)

	for _, it := range catalog {
		assert.Equal(t, int64(100)+int64(it.ID), it.ImageID)
		assert.Contains(t, it.ImageURL, "https://cdn.test/")
		assert.Equal(t, 1, r.calls[it.ImageID])
	}
	assert.Equal(t, 1, r.flushed)
}

func TestMerger_MergeFailures(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name     string
		crawler  *fakeCrawler
		resolver *fakeResolver
		wantErr  error
	}{
		{
			name:     "csrf token",
			crawler:  &fakeCrawler{tokenErr: boom},
			resolver: &fakeResolver{},
			wantErr:  boom,
		},
		{
			name:     "region crawl",
			crawler:  &fakeCrawler{fail: map[models.Region]error{models.RegionIndia: crawler.ErrRegionMismatch}},
			resolver: &fakeResolver{},
			wantErr:  crawler.ErrRegionMismatch,
		},
		{
			name: "image upload",
			crawler: &fakeCrawler{results: map[models.Region]*crawler.RegionResult{
				models.RegionUnitedStates: {Region: models.RegionUnitedStates, Items: []crawler.RawItem{item(1, 5)}},
			}},
			resolver: &fakeResolver{err: boom},
			wantErr:  boom,
		},
		{
			name: "undecodable image url",
			crawler: &fakeCrawler{results: map[models.Region]*crawler.RegionResult{
				models.RegionUnitedStates: {Region: models.RegionUnitedStates, Items: []crawler.RawItem{
					{ID: 1, Price: 1, ImageURL: "https://shop.test/plain.png"},
				}},
			}},
			resolver: &fakeResolver{},
			wantErr:  imagecache.ErrInvalidBlobID,
		},
		{
			name: "flush",
			crawler: &fakeCrawler{results: map[models.Region]*crawler.RegionResult{
				models.RegionUnitedStates: {Region: models.RegionUnitedStates, Items: []crawler.RawItem{item(1, 5)}},
			}},
			resolver: &fakeResolver{flushErr: boom},
			wantErr:  boom,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			catalog, err := newMerger(tc.crawler, tc.resolver).Merge(t.Context())

			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, catalog)
		})
	}
}

func TestMerger_StopsAtFailingRegion(t *testing.T) {
	c := &fakeCrawler{fail: map[models.Region]error{models.RegionUnitedKingdom: errors.New("down")}}

	_, err := newMerger(c, &fakeResolver{}).Merge(t.Context())

	require.Error(t, err)
	assert.Equal(t, []models.Region{models.RegionUnitedStates, models.RegionEurope, models.RegionUnitedKingdom}, c.order)
}
