package retriever

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbrief/internal/domain/document"
)

// stubEmbedder maps texts to fixed 4-dimensional vectors
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32)}
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	// Deterministic fallback spread across dimensions
	v := []float32{float32(len(text) % 7), 1, float32(len(text) % 3), 0.5}
	return v, nil
}

func (s *stubEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.GenerateEmbedding(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 4 }
func (s *stubEmbedder) Name() string    { return "stub-embedder" }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newsDoc(symbol, title, content string) document.SourceDocument {
	return document.SourceDocument{
		ID:        uuid.New(),
		Symbol:    symbol,
		Origin:    document.OriginScrapedNews,
		Title:     title,
		Content:   content,
		FetchedAt: time.Now(),
	}
}

func TestIndex_IngestIdempotent(t *testing.T) {
	emb := newStubEmbedder()
	ix := New(emb, nil)
	ctx := context.Background()

	doc := newsDoc("AAPL", "Apple beats estimates", "strong quarter")

	first, err := ix.Ingest(ctx, doc)
	require.NoError(t, err)

	second, err := ix.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "unchanged document must not create a new record")
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 1, emb.callCount(), "no embedding call for an unchanged document")
}

func TestIndex_ChangedDocumentSupersedes(t *testing.T) {
	emb := newStubEmbedder()
	ix := New(emb, nil)
	ctx := context.Background()

	doc := newsDoc("AAPL", "Apple earnings", "v1")
	first, err := ix.Ingest(ctx, doc)
	require.NoError(t, err)

	doc.Content = "v2 with revised numbers"
	second, err := ix.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, ix.Len(), "old record remains until explicit eviction")

	// Queries only see the current version
	results, err := ix.Query(ctx, "Apple earnings", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2 with revised numbers", results[0].Document.Content)

	assert.Equal(t, 1, ix.EvictSuperseded())
	assert.Equal(t, 1, ix.Len())
}

func TestIndex_QueryClosestFirst(t *testing.T) {
	emb := newStubEmbedder()
	ix := New(emb, nil)
	ctx := context.Background()

	near := newsDoc("AAPL", "iphone sales surge", "")
	far := newsDoc("XOM", "oil output steady", "")

	emb.vectors[near.SearchText()] = []float32{1, 0, 0, 0}
	emb.vectors[far.SearchText()] = []float32{0, 1, 0, 0}
	emb.vectors["apple iphone demand"] = []float32{0.9, 0.1, 0, 0}

	_, err := ix.Ingest(ctx, near)
	require.NoError(t, err)
	_, err = ix.Ingest(ctx, far)
	require.NoError(t, err)

	results, err := ix.Query(ctx, "apple iphone demand", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "AAPL", results[0].Document.Symbol)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestIndex_QueryTieBrokenByRecency(t *testing.T) {
	emb := newStubEmbedder()
	ix := New(emb, nil)
	ctx := context.Background()

	older := newsDoc("AAPL", "headline one", "")
	newer := newsDoc("AAPL", "headline two", "")

	// Identical vectors force a score tie
	emb.vectors[older.SearchText()] = []float32{1, 1, 0, 0}
	emb.vectors[newer.SearchText()] = []float32{1, 1, 0, 0}
	emb.vectors["query"] = []float32{1, 1, 0, 0}

	now := time.Now()
	ix.now = func() time.Time { return now }
	_, err := ix.Ingest(ctx, older)
	require.NoError(t, err)

	ix.now = func() time.Time { return now.Add(time.Second) }
	_, err = ix.Ingest(ctx, newer)
	require.NoError(t, err)

	results, err := ix.Query(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "headline two", results[0].Document.Title, "ties go to the most recent insertion")
}

func TestIndex_ConcurrentIngestAndQuery(t *testing.T) {
	emb := newStubEmbedder()
	ix := New(emb, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				doc := newsDoc("AAPL", fmt.Sprintf("headline %d-%d", n, j), "body")
				_, err := ix.Ingest(ctx, doc)
				require.NoError(t, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				results, err := ix.Query(ctx, "apple news", 5)
				require.NoError(t, err)
				for _, r := range results {
					// Never a half-written record
					assert.NotEqual(t, uuid.Nil, r.Document.ID)
					assert.NotEmpty(t, r.Document.Title)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, ix.Len())
}
