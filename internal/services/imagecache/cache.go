package imagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Houeta/shopwatch/internal/repository"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "image:"

// Store is the persistent byte store behind the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Sync() error
}

// Uploader copies an asset to the CDN and returns its CDN URL.
type Uploader interface {
	Upload(ctx context.Context, assetURL string) (string, error)
}

// Cache memoizes CDN uploads by origin blob id, across items and across runs.
type Cache struct {
	log      *slog.Logger
	store    Store
	uploader Uploader
	inflight singleflight.Group
}

// New creates an image cache.
func New(log *slog.Logger, store Store, uploader Uploader) *Cache {
	return &Cache{log: log, store: store, uploader: uploader}
}

// Resolve returns the CDN URL for the asset, uploading it only if originID was never seen.
// Concurrent calls for the same originID share a single upload.
func (c *Cache) Resolve(ctx context.Context, originID int64, originURL string) (string, error) {
	const opn = "imagecache.Resolve"
	key := keyPrefix + strconv.FormatInt(originID, 10)

	if cached, found, err := c.lookup(ctx, key); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	} else if found {
		return cached, nil
	}

	result, err, _ := c.inflight.Do(key, func() (any, error) {
		// Another caller may have finished between the lookup and joining the flight.
		if cached, found, err := c.lookup(ctx, key); err != nil || found {
			return cached, err
		}

		cdnURL, err := c.uploader.Upload(ctx, originURL)
		if err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", originURL, err)
		}

		if err = c.store.Put(ctx, key, []byte(cdnURL)); err != nil {
			return "", fmt.Errorf("failed to record %s: %w", key, err)
		}
		c.log.InfoContext(ctx, "Uploaded image to CDN", "op", opn, "origin_id", originID, "cdn_url", cdnURL)

		return cdnURL, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	return result.(string), nil //nolint:forcetypeassert // the flight only returns strings
}

// Flush makes every recorded mapping durable.
func (c *Cache) Flush() error {
	if err := c.store.Sync(); err != nil {
		return fmt.Errorf("imagecache.Flush: %w", err)
	}

	return nil
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool, error) {
	value, err := c.store.Get(ctx, key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", key, err)
	}

	return string(value), true, nil
}
