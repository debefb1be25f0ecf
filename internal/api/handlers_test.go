package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbrief/internal/agents"
	analysisengine "finbrief/internal/analysis"
	"finbrief/internal/cache"
	"finbrief/internal/domain/brief"
	"finbrief/internal/domain/document"
	"finbrief/internal/events"
	"finbrief/internal/narrative"
	"finbrief/internal/orchestrator"
	"finbrief/internal/retriever"
	"finbrief/pkg/errors"
)

type fixedEmbedder struct{}

func (fixedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3, 4}, nil
}

func (f fixedEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3, 4}
	}
	return out, nil
}

func (fixedEmbedder) Dimensions() int { return 4 }
func (fixedEmbedder) Name() string    { return "fixed" }

type staticAgent struct{}

func (staticAgent) Source() document.Origin { return document.OriginMarketData }

func (staticAgent) Fetch(ctx context.Context, symbol string) ([]document.SourceDocument, error) {
	return []document.SourceDocument{{
		Symbol: symbol,
		Origin: document.OriginMarketData,
		Title:  symbol + " market snapshot",
		Market: &document.MarketPayload{
			CurrentPrice: 100,
			Closes:       []float64{95, 98, 100},
			Sector:       "Technology",
			MarketCap:    1e12,
			PERatio:      20,
			High52Week:   120,
			Low52Week:    80,
		},
		FetchedAt: time.Now(),
	}}, nil
}

type staticAI struct{}

func (staticAI) Name() string { return "static" }

func (staticAI) Complete(ctx context.Context, prompt string) (string, error) {
	return "Tech held steady.", nil
}

type downCache struct{ cache.Cache }

func (downCache) Health(ctx context.Context) error {
	return errors.New("redis connection refused")
}

func newHandler(store cache.Cache) *BriefHandler {
	orch := orchestrator.New(
		[]agents.SourceAgent{staticAgent{}},
		retriever.New(fixedEmbedder{}, nil),
		analysisengine.New(5.0),
		narrative.New(staticAI{}),
		nil,
		store,
		events.NoopPublisher{},
		orchestrator.Config{
			CallTimeout:     time.Second,
			RequestDeadline: 5 * time.Second,
			MaxConcurrency:  4,
			RetrievalK:      3,
		},
	)
	return NewBriefHandler(orch)
}

func TestMarketBriefReturnsPerSymbolEntries(t *testing.T) {
	h := newHandler(cache.NewMemory())

	body, _ := json.Marshal(map[string]interface{}{"symbols": []string{"AAPL", "MSFT"}})
	req := httptest.NewRequest(http.MethodPost, "/market-brief", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result brief.MarketBrief
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.PerSymbol, 2)
	assert.Equal(t, brief.StatusComplete, result.Status)
	assert.Equal(t, "Tech held steady.", result.Narrative)
}

func TestMarketBriefRejectsMalformedBody(t *testing.T) {
	h := newHandler(cache.NewMemory())

	req := httptest.NewRequest(http.MethodPost, "/market-brief", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketBriefRejectsEmptySymbols(t *testing.T) {
	h := newHandler(cache.NewMemory())

	body, _ := json.Marshal(map[string]interface{}{"symbols": []string{}})
	req := httptest.NewRequest(http.MethodPost, "/market-brief", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketBriefRejectsWrongMethod(t *testing.T) {
	h := newHandler(cache.NewMemory())

	req := httptest.NewRequest(http.MethodGet, "/market-brief", nil)
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMarketBriefUnavailableDependencyIs503(t *testing.T) {
	h := newHandler(downCache{cache.NewMemory()})

	body, _ := json.Marshal(map[string]interface{}{"symbols": []string{"AAPL"}})
	req := httptest.NewRequest(http.MethodPost, "/market-brief", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unavailable")
}

func TestVoiceBriefWithoutVoiceConfiguredIs503(t *testing.T) {
	h := newHandler(cache.NewMemory())

	req := httptest.NewRequest(http.MethodPost, "/voice-brief", bytes.NewReader([]byte("audio-bytes")))
	rec := httptest.NewRecorder()

	h.HandleVoiceBrief(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownFocusAreaIs400(t *testing.T) {
	h := newHandler(cache.NewMemory())

	body, _ := json.Marshal(map[string]interface{}{
		"symbols":     []string{"AAPL"},
		"focus_areas": []string{"astrology"},
	})
	req := httptest.NewRequest(http.MethodPost, "/market-brief", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleMarketBrief(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
