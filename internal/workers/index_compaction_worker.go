package workers

import (
	"context"
	"time"

	"finbrief/internal/retriever"
)

// ArchivePruner removes archived embedding rows older than a cutoff
type ArchivePruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IndexCompactionWorker drops superseded embedding records from the vector
// index and, when an archive is configured, prunes archive rows past the
// retention window. Supersession happens at ingest; compaction just reclaims
// the space the replaced records still occupy.
type IndexCompactionWorker struct {
	*BaseWorker
	index     *retriever.Index
	archive   ArchivePruner
	retention time.Duration
}

// NewIndexCompactionWorker creates the compaction worker. archive may be nil.
func NewIndexCompactionWorker(index *retriever.Index, archive ArchivePruner, retention, interval time.Duration) *IndexCompactionWorker {
	return &IndexCompactionWorker{
		BaseWorker: NewBaseWorker("index_compaction", interval, index != nil),
		index:      index,
		archive:    archive,
		retention:  retention,
	}
}

// Run evicts superseded records and prunes the archive once
func (w *IndexCompactionWorker) Run(ctx context.Context) error {
	start := time.Now()
	removed := w.index.EvictSuperseded()

	if removed > 0 {
		w.Log().Infow("Compacted vector index", "removed", removed, "remaining", w.index.Len())
	}

	if w.archive != nil && w.retention > 0 {
		pruned, err := w.archive.DeleteOlderThan(ctx, time.Now().Add(-w.retention))
		if err != nil {
			w.Log().Warnw("Failed to prune embedding archive", "error", err)
		} else if pruned > 0 {
			w.Log().Infow("Pruned embedding archive", "rows", pruned)
		}
	}

	w.RecordRun(time.Since(start))
	return nil
}
