package workers

import (
	"context"
	"time"

	"finbrief/internal/cache"
)

// CacheEvictionWorker opportunistically sweeps expired entries out of the
// in-process cache so memory does not track dead data between reads. Lazy
// expiry at read time stays correct without it; this only reclaims space.
type CacheEvictionWorker struct {
	*BaseWorker
	store *cache.Memory
}

// NewCacheEvictionWorker creates the eviction worker
func NewCacheEvictionWorker(store *cache.Memory, interval time.Duration) *CacheEvictionWorker {
	return &CacheEvictionWorker{
		BaseWorker: NewBaseWorker("cache_eviction", interval, store != nil),
		store:      store,
	}
}

// Run sweeps expired entries once
func (w *CacheEvictionWorker) Run(ctx context.Context) error {
	start := time.Now()
	removed := w.store.Sweep()

	if removed > 0 {
		w.Log().Infow("Swept expired cache entries", "removed", removed, "remaining", w.store.Len())
	}
	w.RecordRun(time.Since(start))
	return nil
}
