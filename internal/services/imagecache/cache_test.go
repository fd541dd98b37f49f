package imagecache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Houeta/shopwatch/internal/repository"
	"github.com/Houeta/shopwatch/internal/services/imagecache"
	"github.com/Houeta/shopwatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore is an in-memory imagecache.Store.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	putErr  error
	syncErr error
	syncs   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, repository.ErrKeyNotFound
	}

	return v, nil
}

func (s *memStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.putErr != nil {
		return s.putErr
	}
	s.data[key] = value

	return nil
}

func (s *memStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++

	return s.syncErr
}

func newCache(store imagecache.Store, uploader imagecache.Uploader) *imagecache.Cache {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return imagecache.New(logger, store, uploader)
}

func TestCache_ResolveUploadsOnce(t *testing.T) {
	uploader := mocks.NewUploader(t)
	uploader.On("Upload", mock.Anything, "https://shop.test/a.png").Return("https://cdn.test/a.png", nil).Once()

	store := newMemStore()
	cache := newCache(store, uploader)

	first, err := cache.Resolve(t.Context(), 10, "https://shop.test/a.png")
	require.NoError(t, err)

	second, err := cache.Resolve(t.Context(), 10, "https://shop.test/a.png")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.test/a.png", first)
	assert.Equal(t, first, second)
	assert.Equal(t, []byte("https://cdn.test/a.png"), store.data["image:10"])
}

func TestCache_ResolveKeysByOriginIDNotURL(t *testing.T) {
	uploader := mocks.NewUploader(t)
	uploader.On("Upload", mock.Anything, "https://shop.test/old.png").Return("https://cdn.test/x.png", nil).Once()

	cache := newCache(newMemStore(), uploader)

	_, err := cache.Resolve(t.Context(), 5, "https://shop.test/old.png")
	require.NoError(t, err)

	rotated, err := cache.Resolve(t.Context(), 5, "https://shop.test/rotated.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/x.png", rotated)
}

func TestCache_ResolveConcurrentSameID(t *testing.T) {
	uploader := mocks.NewUploader(t)
	uploader.On("Upload", mock.Anything, "https://shop.test/s.png").Return("https://cdn.test/s.png", nil).Once()

	cache := newCache(newMemStore(), uploader)

	const callers = 16
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := cache.Resolve(t.Context(), 3, "https://shop.test/s.png")
			assert.NoError(t, err)
			results[i] = url
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "https://cdn.test/s.png", got)
	}
}

func TestCache_ResolveFailures(t *testing.T) {
	t.Run("upload failure caches nothing", func(t *testing.T) {
		uploader := mocks.NewUploader(t)
		uploader.On("Upload", mock.Anything, "u").Return("", errors.New("cdn down")).Once()
		uploader.On("Upload", mock.Anything, "u").Return("https://cdn.test/u", nil).Once()

		store := newMemStore()
		cache := newCache(store, uploader)

		_, err := cache.Resolve(t.Context(), 1, "u")
		require.Error(t, err)
		assert.Empty(t, store.data)

		got, err := cache.Resolve(t.Context(), 1, "u")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/u", got)
	})

	t.Run("store read failure", func(t *testing.T) {
		store := newMemStore()
		store.getErr = assert.AnError

		_, err := newCache(store, mocks.NewUploader(t)).Resolve(t.Context(), 1, "u")
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("store write failure", func(t *testing.T) {
		uploader := mocks.NewUploader(t)
		uploader.On("Upload", mock.Anything, "u").Return("https://cdn.test/u", nil).Once()
		store := newMemStore()
		store.putErr = assert.AnError

		_, err := newCache(store, uploader).Resolve(t.Context(), 1, "u")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestCache_Flush(t *testing.T) {
	store := newMemStore()
	cache := newCache(store, mocks.NewUploader(t))

	require.NoError(t, cache.Flush())
	assert.Equal(t, 1, store.syncs)

	store.syncErr = assert.AnError
	require.ErrorIs(t, cache.Flush(), assert.AnError)
}
