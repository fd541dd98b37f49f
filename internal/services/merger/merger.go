package merger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/services/crawler"
	"github.com/Houeta/shopwatch/internal/services/imagecache"
	"golang.org/x/sync/errgroup"
)

// RegionCrawler produces the raw records of one region.
type RegionCrawler interface {
	CSRFToken(ctx context.Context) (string, error)
	CrawlRegion(ctx context.Context, region models.Region, csrfToken string) (*crawler.RegionResult, error)
}

// ImageResolver maps an origin image to its CDN URL and persists the mapping on Flush.
type ImageResolver interface {
	Resolve(ctx context.Context, originID int64, originURL string) (string, error)
	Flush() error
}

// Merger crawls every region and merges the results into one catalog.
type Merger struct {
	log          *slog.Logger
	crawler      RegionCrawler
	images       ImageResolver
	regions      []models.Region
	imageWorkers int
}

// New creates a merger over all known regions.
func New(log *slog.Logger, crawler RegionCrawler, images ImageResolver, imageWorkers int) *Merger {
	if imageWorkers < 1 {
		imageWorkers = 1
	}

	return &Merger{
		log:          log,
		crawler:      crawler,
		images:       images,
		regions:      models.Regions,
		imageWorkers: imageWorkers,
	}
}

// Merge runs one pass per region, strictly one after another, and returns the sorted catalog.
// Any failure aborts the whole merge.
func (m *Merger) Merge(ctx context.Context) (models.Catalog, error) {
	const opn = "merger.Merge"
	log := m.log.With("op", opn)

	token, err := m.crawler.CSRFToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	builder := newCatalogBuilder()
	for _, region := range m.regions {
		log.InfoContext(ctx, "Crawling region", "region", region.String())

		result, err := m.crawler.CrawlRegion(ctx, region, token)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}
		builder.fold(result)
	}

	if err = m.resolveImages(ctx, builder); err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	if err = m.images.Flush(); err != nil {
		return nil, fmt.Errorf("%s: failed to flush image cache: %w", opn, err)
	}

	catalog := builder.catalog()
	log.InfoContext(ctx, "Catalog merged", "items", len(catalog), "regions", len(m.regions))

	return catalog, nil
}

// resolveImages swaps every origin image for its CDN URL on a bounded pool.
func (m *Merger) resolveImages(ctx context.Context, builder *catalogBuilder) error {
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(m.imageWorkers)

	for _, id := range builder.order {
		item := builder.items[id]
		originURL := item.ImageURL

		group.Go(func() error {
			originID, err := imagecache.ParseBlobID(originURL)
			if err != nil {
				return fmt.Errorf("item %d: %w", id, err)
			}

			cdnURL, err := m.images.Resolve(gctx, originID, originURL)
			if err != nil {
				return fmt.Errorf("item %d: %w", id, err)
			}

			mu.Lock()
			item.ImageID = originID
			item.ImageURL = cdnURL
			mu.Unlock()

			return nil
		})
	}

	return group.Wait()
}

// catalogBuilder accumulates region results keyed by item id.
type catalogBuilder struct {
	items       map[models.ItemID]*models.ShopItem
	accessories map[models.ItemID]map[int64]*models.Accessory
	order       []models.ItemID
}

func newCatalogBuilder() *catalogBuilder {
	return &catalogBuilder{
		items:       make(map[models.ItemID]*models.ShopItem),
		accessories: make(map[models.ItemID]map[int64]*models.Accessory),
	}
}

// fold merges one region's result. Folding the same result twice changes nothing.
func (b *catalogBuilder) fold(result *crawler.RegionResult) {
	region := result.Region

	for _, raw := range result.Items {
		item, ok := b.items[raw.ID]
		if !ok {
			item = &models.ShopItem{
				ID:          raw.ID,
				Title:       raw.Title,
				Description: raw.Description,
				ImageURL:    raw.ImageURL,
				BuyURL:      raw.BuyURL,
				Prices:      make(models.Prices, len(models.Regions)),
			}
			b.items[raw.ID] = item
			b.order = append(b.order, raw.ID)
		}
		item.Prices[region] = raw.Price

		detail, ok := result.Details[raw.ID]
		if !ok {
			continue
		}
		if item.LongDescription == "" {
			item.LongDescription = detail.LongDescription
		}
		if item.Stock == nil && detail.Stock != nil {
			stock := *detail.Stock
			item.Stock = &stock
		}
		b.foldAccessories(raw.ID, region, detail.Accessories)
	}
}

func (b *catalogBuilder) foldAccessories(id models.ItemID, region models.Region, raws []crawler.RawAccessory) {
	if len(raws) == 0 {
		return
	}

	byID, ok := b.accessories[id]
	if !ok {
		byID = make(map[int64]*models.Accessory, len(raws))
		b.accessories[id] = byID
	}

	for _, raw := range raws {
		acc, ok := byID[raw.ID]
		if !ok {
			acc = &models.Accessory{ID: raw.ID, Name: raw.Name, Prices: make(models.Prices)}
			byID[raw.ID] = acc
		}
		acc.Prices[region] = raw.Price
	}
}

// catalog returns the accumulated items sorted by id with accessories sorted by id.
func (b *catalogBuilder) catalog() models.Catalog {
	catalog := make(models.Catalog, 0, len(b.items))

	for _, id := range b.order {
		item := *b.items[id]

		if byID := b.accessories[id]; len(byID) > 0 {
			item.Accessories = make([]models.Accessory, 0, len(byID))
			for _, acc := range byID {
				item.Accessories = append(item.Accessories, *acc)
			}
			slices.SortFunc(item.Accessories, func(a, b models.Accessory) int {
				switch {
				case a.ID < b.ID:
					return -1
				case a.ID > b.ID:
					return 1
				default:
					return 0
				}
			})
		}

		catalog = append(catalog, item)
	}

	return models.SortCatalog(catalog)
}
