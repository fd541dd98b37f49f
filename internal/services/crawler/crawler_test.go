package crawler_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/services/crawler"
	"github.com/Houeta/shopwatch/test/fixtures"
	"github.com/Houeta/shopwatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newCrawler(src crawler.PageSource) *crawler.Crawler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return crawler.NewCrawler(logger, src, 3)
}

func TestCrawler_CSRFToken(t *testing.T) {
	src := mocks.NewRegionalPageSource()
	src.Set("", "shop", fixtures.ShopHTML("secret-token"))

	token, err := newCrawler(src).CSRFToken(t.Context())

	require.NoError(t, err)
	assert.Equal(t, "secret-token", token)

	t.Run("missing meta tag", func(t *testing.T) {
		empty := mocks.NewRegionalPageSource()
		empty.Set("", "shop", "<html></html>")

		_, err := newCrawler(empty).CSRFToken(t.Context())
		require.ErrorIs(t, err, crawler.ErrMissingElement)
	})
}

func TestCrawler_CrawlRegion(t *testing.T) {
	src := mocks.NewRegionalPageSource()
	src.Set("EU", "shop", fixtures.ListingHTML("EU",
		fixtures.Card{ID: 1, Title: "Sticker", Description: "Shiny", Price: "12 shells", ImageSrc: fixtures.BlobImageURL(100)},
		fixtures.Card{ID: 2, Title: "Hoodie", Description: "", Price: "1,200", ImageSrc: "/img/hoodie.png"},
	))
	src.Set("EU", fixtures.OrderPath(1), fixtures.DetailHTML(fixtures.Detail{
		LongDescription: "A very shiny sticker",
		Stock:           "Only 3 left!",
		Accessories: []fixtures.Accessory{
			{ID: 7, Name: "Laminate", Price: "2"},
			{ID: 8, Name: "Holo", Price: "5"},
			{ID: 7, Name: "Laminate again", Price: "9"},
		},
	}))
	src.Set("EU", fixtures.OrderPath(2), fixtures.DetailHTML(fixtures.Detail{Stock: "Out of stock"}))

	result, err := newCrawler(src).CrawlRegion(t.Context(), models.RegionEurope, "tok")
	require.NoError(t, err)

	assert.Equal(t, []string{"EU"}, src.Switches)
	assert.Equal(t, models.RegionEurope, result.Region)
	require.Len(t, result.Items, 2)

	sticker := result.Items[0]
	assert.Equal(t, models.ItemID(1), sticker.ID)
	assert.Equal(t, "Sticker", sticker.Title)
	assert.Equal(t, "Shiny", sticker.Description)
	assert.Equal(t, uint32(12), sticker.Price)
	assert.Equal(t, "https://shop.test/shop/order?shop_item_id=1", sticker.BuyURL)

	hoodie := result.Items[1]
	assert.Equal(t, uint32(1200), hoodie.Price)
	assert.Equal(t, "https://shop.test/img/hoodie.png", hoodie.ImageURL)

	stickerDetail := result.Details[1]
	assert.Equal(t, "A very shiny sticker", stickerDetail.LongDescription)
	require.NotNil(t, stickerDetail.Stock)
	assert.Equal(t, uint32(3), *stickerDetail.Stock)
	assert.Equal(t, []crawler.RawAccessory{
		{ID: 7, Name: "Laminate", Price: 2},
		{ID: 8, Name: "Holo", Price: 5},
	}, stickerDetail.Accessories)

	hoodieDetail := result.Details[2]
	require.NotNil(t, hoodieDetail.Stock)
	assert.Equal(t, uint32(0), *hoodieDetail.Stock)
	assert.Empty(t, hoodieDetail.LongDescription)
}

func TestCrawler_CrawlRegion_Failures(t *testing.T) {
	listing := fixtures.ListingHTML("US",
		fixtures.Card{ID: 1, Title: "Sticker", Description: "d", Price: "5", ImageSrc: "/a.png"},
	)

	testCases := []struct {
		name      string
		setup     func(src *mocks.RegionalPageSource)
		wantErrIs error
	}{
		{
			name: "switch rejected",
			setup: func(src *mocks.RegionalPageSource) {
				src.FailSwitch = map[string]error{"US": errors.New("status code error: [422]")}
			},
		},
		{
			name: "silent switch failure is a region mismatch",
			setup: func(src *mocks.RegionalPageSource) {
				src.IgnoreSwitch = true
				src.Set("", "shop", fixtures.ListingHTML("EU"))
			},
			wantErrIs: crawler.ErrRegionMismatch,
		},
		{
			name: "listing without region selector",
			setup: func(src *mocks.RegionalPageSource) {
				src.Set("US", "shop", "<html><body></body></html>")
			},
			wantErrIs: crawler.ErrMissingElement,
		},
		{
			name: "card without price",
			setup: func(src *mocks.RegionalPageSource) {
				src.Set("US", "shop", `<html><body><select name="region"><option value="US" selected></option></select>
					<div class="shop-item-card"><h4>x</h4><p class="shop-item-card__description"></p></div></body></html>`)
			},
			wantErrIs: crawler.ErrMissingElement,
		},
		{
			name: "unparseable price",
			setup: func(src *mocks.RegionalPageSource) {
				src.Set("US", "shop", fixtures.ListingHTML("US",
					fixtures.Card{ID: 1, Title: "x", Price: "free", ImageSrc: "/a.png"}))
			},
		},
		{
			name: "detail page missing",
			setup: func(src *mocks.RegionalPageSource) {
				src.Set("US", "shop", listing)
			},
		},
		{
			name: "accessory without price",
			setup: func(src *mocks.RegionalPageSource) {
				src.Set("US", "shop", listing)
				src.Set("US", fixtures.OrderPath(1), `<html><body>
					<div class="shop-item-detail__accessory" data-accessory-id="3">
					<span class="shop-item-detail__accessory-name">Frame</span></div></body></html>`)
			},
			wantErrIs: crawler.ErrMissingElement,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := mocks.NewRegionalPageSource()
			tc.setup(src)

			result, err := newCrawler(src).CrawlRegion(t.Context(), models.RegionUnitedStates, "tok")

			require.Error(t, err)
			assert.Nil(t, result)
			if tc.wantErrIs != nil {
				require.ErrorIs(t, err, tc.wantErrIs)
			}
		})
	}
}

func TestCrawler_CrawlRegion_ManyDetails(t *testing.T) {
	const count = 25

	cards := make([]fixtures.Card, 0, count)
	src := mocks.NewRegionalPageSource()
	for i := range count {
		id := int64(i + 1)
		cards = append(cards, fixtures.Card{ID: id, Title: fmt.Sprintf("Item %d", id), Price: "1", ImageSrc: "/i.png"})
		src.Set("CA", fixtures.OrderPath(id), fixtures.DetailHTML(fixtures.Detail{Stock: fmt.Sprintf("%d left", id)}))
	}
	src.Set("CA", "shop", fixtures.ListingHTML("CA", cards...))

	result, err := newCrawler(src).CrawlRegion(t.Context(), models.RegionCanada, "tok")

	require.NoError(t, err)
	require.Len(t, result.Details, count)
	for i := range count {
		id := models.ItemID(i + 1)
		require.NotNil(t, result.Details[id].Stock)
		assert.Equal(t, uint32(id), *result.Details[id].Stock)
	}
}
