// Package retriever maintains the in-memory vector index over ingested
// documents and answers nearest-neighbor queries for the orchestrator.
package retriever

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"finbrief/internal/adapters/embeddings"
	"finbrief/internal/domain/document"
	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

// EmbeddingRecord binds one document version to its vector. Records are
// immutable once published; a changed document produces a new record that
// logically supersedes the old one.
type EmbeddingRecord struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	ContentHash string
	Vector      []float32
	Model       string
	InsertedAt  time.Time
	Document    document.SourceDocument

	superseded bool // guarded by Index.mu
}

// Result is one nearest-neighbor match, closest first
type Result struct {
	Document document.SourceDocument
	Score    float64
}

// Archive optionally persists embedding records for durability and audit.
// The in-memory index remains the query authority.
type Archive interface {
	Store(ctx context.Context, rec *EmbeddingRecord) error
}

// Index owns the EmbeddingRecord collection exclusively. All operations are
// safe for concurrent use: queries score a snapshot taken under a read lock,
// so an in-flight query sees either the old or the new state of a
// concurrently ingested document, never a half-written record.
type Index struct {
	mu      sync.RWMutex
	records []*EmbeddingRecord
	latest  map[string]*EmbeddingRecord // current record per document key

	embedder embeddings.Provider
	archive  Archive
	log      *logger.Logger
	now      func() time.Time
}

// New creates an empty index backed by the given embedding provider.
// archive may be nil.
func New(embedder embeddings.Provider, archive Archive) *Index {
	return &Index{
		latest:   make(map[string]*EmbeddingRecord),
		embedder: embedder,
		archive:  archive,
		log:      logger.Get().With("component", "retriever"),
		now:      time.Now,
	}
}

// docKey identifies a document across re-fetches. Content may change between
// fetches; origin, symbol and link/title stay stable.
func docKey(doc *document.SourceDocument) string {
	ref := doc.Link
	if ref == "" {
		ref = doc.Title
	}
	return doc.Origin.String() + "|" + doc.Symbol + "|" + ref
}

// Ingest embeds doc and appends a new record. Re-ingesting a document with
// an unchanged content hash is a no-op returning the existing record. A
// changed document supersedes its previous record; the old record stays in
// the store until EvictSuperseded runs.
func (ix *Index) Ingest(ctx context.Context, doc document.SourceDocument) (*EmbeddingRecord, error) {
	key := docKey(&doc)
	hash := doc.ContentHash()

	ix.mu.RLock()
	if cur, ok := ix.latest[key]; ok && cur.ContentHash == hash {
		ix.mu.RUnlock()
		return cur, nil
	}
	ix.mu.RUnlock()

	// Embed outside the lock; this is the slow external call
	vec, err := ix.embedder.GenerateEmbedding(ctx, doc.SearchText())
	if err != nil {
		return nil, errors.Wrap(err, "embed document")
	}
	if len(vec) != ix.embedder.Dimensions() {
		return nil, errors.Wrapf(errors.ErrInternal,
			"embedding dimensionality mismatch: got %d, want %d", len(vec), ix.embedder.Dimensions())
	}

	rec := &EmbeddingRecord{
		ID:          uuid.New(),
		DocumentID:  doc.ID,
		ContentHash: hash,
		Vector:      vec,
		Model:       ix.embedder.Name(),
		InsertedAt:  ix.now(),
		Document:    doc,
	}

	ix.mu.Lock()
	// Re-check: a concurrent ingest of the same version wins
	if cur, ok := ix.latest[key]; ok && cur.ContentHash == hash {
		ix.mu.Unlock()
		return cur, nil
	}
	if prev, ok := ix.latest[key]; ok {
		prev.superseded = true
	}
	ix.records = append(ix.records, rec)
	ix.latest[key] = rec
	size := len(ix.records)
	ix.mu.Unlock()

	metrics.IndexSize.Set(float64(size))

	if ix.archive != nil {
		if err := ix.archive.Store(ctx, rec); err != nil {
			// Archive is best-effort; the in-memory index stays authoritative
			ix.log.Warnw("Failed to archive embedding record", "doc_id", rec.DocumentID, "error", err)
		}
	}

	return rec, nil
}

// Query returns the k documents closest to text by cosine similarity,
// closest first, ties broken by most recent insertion.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		k = 5
	}

	vec, err := ix.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		metrics.IndexQueries.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "embed query")
	}

	// Snapshot the current records under the read lock; scoring happens
	// outside it so ingestion is never blocked on a slow query
	ix.mu.RLock()
	snapshot := make([]*EmbeddingRecord, 0, len(ix.records))
	for _, rec := range ix.records {
		if !rec.superseded {
			snapshot = append(snapshot, rec)
		}
	}
	ix.mu.RUnlock()

	results := make([]Result, 0, len(snapshot))
	times := make(map[uuid.UUID]time.Time, len(snapshot))
	for _, rec := range snapshot {
		results = append(results, Result{Document: rec.Document, Score: cosine(vec, rec.Vector)})
		times[rec.Document.ID] = rec.InsertedAt
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return times[results[i].Document.ID].After(times[results[j].Document.ID])
	})

	if len(results) > k {
		results = results[:k]
	}

	metrics.IndexQueries.WithLabelValues("success").Inc()
	return results, nil
}

// EvictSuperseded removes records replaced by newer document versions and
// returns how many were dropped
func (ix *Index) EvictSuperseded() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.records[:0]
	evicted := 0
	for _, rec := range ix.records {
		if rec.superseded {
			evicted++
			continue
		}
		kept = append(kept, rec)
	}
	ix.records = kept

	metrics.IndexSize.Set(float64(len(ix.records)))
	return evicted
}

// Len returns the number of stored records, superseded ones included
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Health reports whether the index can serve queries
func (ix *Index) Health(_ context.Context) error {
	if ix.embedder == nil {
		return errors.Wrap(errors.ErrDependencyUnavailable, "no embedding provider")
	}
	return nil
}

// cosine computes cosine similarity between two vectors
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
