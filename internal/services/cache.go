package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/models"
)

// DatasetLoader is satisfied by *Loader; tests substitute counting fakes.
type DatasetLoader interface {
	Load(ctx context.Context, src Source) (*models.Dataset, error)
}

// DatasetCache memoizes one Dataset per source ID. Concurrent first
// requests for the same source share a single load. Entries live until
// Reset or ResetAll; failed loads are not cached.
//
// A shared load does not inherit the cancellation of the caller that
// started it, so one abandoned request cannot fail every caller waiting on
// the same flight. It is bounded by the load timeout instead.
type DatasetCache struct {
	loader      DatasetLoader
	loadTimeout time.Duration
	group       singleflight.Group

	mu      sync.RWMutex
	entries map[string]*models.Dataset
	// generation and epoch advance on Reset and ResetAll. A flight stores
	// its result only if neither moved while it was loading.
	generation map[string]uint64
	epoch      uint64
}

func NewDatasetCache(loader DatasetLoader) *DatasetCache {
	return &DatasetCache{
		loader:     loader,
		entries:    make(map[string]*models.Dataset),
		generation: make(map[string]uint64),
	}
}

// WithLoadTimeout bounds each shared load. Zero leaves loads unbounded.
func (c *DatasetCache) WithLoadTimeout(d time.Duration) *DatasetCache {
	c.loadTimeout = d
	return c
}

func (c *DatasetCache) Get(ctx context.Context, src Source) (*models.Dataset, error) {
	key := src.ID()

	if ds, ok := c.lookup(key); ok {
		return ds, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that lost the race to an earlier flight finds the result here.
		if ds, ok := c.lookup(key); ok {
			return ds, nil
		}

		c.mu.RLock()
		gen, epoch := c.generation[key], c.epoch
		c.mu.RUnlock()

		loadCtx, cancel := c.loadContext(ctx)
		defer cancel()

		ds, err := c.loader.Load(loadCtx, src)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation[key] == gen && c.epoch == epoch {
			c.entries[key] = ds
		}
		c.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Dataset), nil
}

func (c *DatasetCache) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.loadTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, c.loadTimeout)
}

// Reset drops the entry for src. A load already in flight for src is
// detached: later callers start a fresh load and the old result is not
// stored.
func (c *DatasetCache) Reset(src Source) {
	key := src.ID()

	c.mu.Lock()
	delete(c.entries, key)
	c.generation[key]++
	c.mu.Unlock()

	c.group.Forget(key)
}

func (c *DatasetCache) ResetAll() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	clear(c.entries)
	c.epoch++
	c.mu.Unlock()

	for _, key := range keys {
		c.group.Forget(key)
	}
}

func (c *DatasetCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *DatasetCache) lookup(key string) (*models.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.entries[key]
	return ds, ok
}
