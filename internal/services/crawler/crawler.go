package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/Houeta/shopwatch/internal/parser"
	"golang.org/x/sync/errgroup"
)

const shopPath = "shop"

var (
	// ErrMissingElement is returned when an expected element or attribute is absent.
	ErrMissingElement = errors.New("missing element")
	// ErrRegionMismatch is returned when the page reports a different region than requested.
	ErrRegionMismatch = errors.New("active region mismatch")
)

// PageSource fetches storefront documents and switches the session's region.
type PageSource interface {
	Fetch(ctx context.Context, rawURL string) (parser.Document, error)
	SwitchRegion(ctx context.Context, code, csrfToken string) error
	Resolve(ref string) (string, error)
}

// RawItem is one item card as it appears on a region's listing page.
type RawItem struct {
	ID          models.ItemID
	Title       string
	Description string
	Price       uint32
	ImageURL    string
	BuyURL      string
}

// Detail holds the data found on an item's own page.
type Detail struct {
	LongDescription string
	Stock           *uint32
	Accessories     []RawAccessory
}

// RawAccessory is an accessory option with the price for the crawled region.
type RawAccessory struct {
	ID    int64
	Name  string
	Price uint32
}

// RegionResult is everything one region pass produced.
type RegionResult struct {
	Region  models.Region
	Items   []RawItem
	Details map[models.ItemID]Detail
}

// Crawler extracts raw item records for one region at a time.
type Crawler struct {
	log     *slog.Logger
	source  PageSource
	workers int
}

// NewCrawler creates a crawler that fetches detail pages with up to workers concurrent requests.
func NewCrawler(log *slog.Logger, source PageSource, workers int) *Crawler {
	if workers < 1 {
		workers = 1
	}

	return &Crawler{log: log, source: source, workers: workers}
}

// CSRFToken reads the anti-forgery token from the shop page.
func (c *Crawler) CSRFToken(ctx context.Context) (string, error) {
	const opn = "crawler.CSRFToken"

	doc, err := c.source.Fetch(ctx, shopPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to fetch shop page: %w", opn, err)
	}

	token, err := requireAttr(doc, `meta[name="csrf-token"]`, "content")
	if err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	return token, nil
}

// CrawlRegion switches the session to region and extracts its listing and item details.
// Callers must not run two regions concurrently on the same session.
func (c *Crawler) CrawlRegion(ctx context.Context, region models.Region, csrfToken string) (*RegionResult, error) {
	const opn = "crawler.CrawlRegion"
	log := c.log.With("op", opn, "region", region.Code())

	if err := c.source.SwitchRegion(ctx, region.Code(), csrfToken); err != nil {
		return nil, fmt.Errorf("%s: failed to switch region to %s: %w", opn, region, err)
	}

	doc, err := c.source.Fetch(ctx, shopPath)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch listing for %s: %w", opn, region, err)
	}

	if err = checkActiveRegion(doc, region); err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	items, err := parseListing(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse listing for %s: %w", opn, region, err)
	}
	for i := range items {
		if items[i].BuyURL, err = c.source.Resolve(items[i].BuyURL); err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", opn, items[i].ID, err)
		}
		if items[i].ImageURL, err = c.source.Resolve(items[i].ImageURL); err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", opn, items[i].ID, err)
		}
	}
	log.InfoContext(ctx, "Parsed listing", "count", len(items))

	details, err := c.fetchDetails(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	log.DebugContext(ctx, "Fetched item details", "count", len(details))

	return &RegionResult{Region: region, Items: items, Details: details}, nil
}

// fetchDetails loads every item's detail page on a bounded pool and waits for all of them.
func (c *Crawler) fetchDetails(ctx context.Context, items []RawItem) (map[models.ItemID]Detail, error) {
	var (
		mu      sync.Mutex
		details = make(map[models.ItemID]Detail, len(items))
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for _, item := range items {
		group.Go(func() error {
			doc, err := c.source.Fetch(gctx, item.BuyURL)
			if err != nil {
				return fmt.Errorf("failed to fetch details for item %d: %w", item.ID, err)
			}

			detail, err := parseDetail(doc)
			if err != nil {
				return fmt.Errorf("failed to parse details for item %d: %w", item.ID, err)
			}

			mu.Lock()
			details[item.ID] = detail
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return details, nil
}

func checkActiveRegion(doc parser.Document, region models.Region) error {
	code, err := requireAttr(doc, `select[name="region"] option[selected]`, "value")
	if err != nil {
		return err
	}
	if code != region.Code() {
		return fmt.Errorf("%w: requested %s, page shows %s", ErrRegionMismatch, region.Code(), code)
	}

	return nil
}

func requireOne(node parser.Node, selector string) (parser.Node, error) {
	found, ok := node.FindOne(selector)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingElement, selector)
	}

	return found, nil
}

func requireAttr(node parser.Node, selector, attr string) (string, error) {
	found, err := requireOne(node, selector)
	if err != nil {
		return "", err
	}

	value, ok := found.Attr(attr)
	if !ok {
		return "", fmt.Errorf("%w: %s[%s]", ErrMissingElement, selector, attr)
	}

	return value, nil
}
