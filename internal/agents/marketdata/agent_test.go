package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbrief/internal/adapters/config"
	"finbrief/internal/adapters/retry"
	"finbrief/internal/cache"
	"finbrief/internal/domain/document"
	"finbrief/pkg/errors"
)

func fastPolicy() *retry.Policy {
	return retry.New(retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})
}

func newTestAgent(t *testing.T, handler http.HandlerFunc) (*Agent, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.MarketDataConfig{
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		RateLimit: 6000,
	}
	return New(cfg, cache.NewMemory(), 2*time.Minute, fastPolicy()), srv
}

func quoteHandler(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol":               "AAPL",
			"price":                190.5,
			"closes":               []float64{185, 187, 189, 190.5},
			"company_name":         "Apple Inc.",
			"sector":               "Technology",
			"market_cap":           2.9e12,
			"pe_ratio":             29.4,
			"fifty_two_week_high":  199.6,
			"fifty_two_week_low":   164.1,
			"consensus_eps":        1.50,
			"actual_eps":           1.64,
		})
	}
}

func TestFetchNormalizesQuote(t *testing.T) {
	var calls atomic.Int32
	agent, _ := newTestAgent(t, quoteHandler(&calls))

	docs, err := agent.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "AAPL", doc.Symbol)
	assert.Equal(t, document.OriginMarketData, doc.Origin)
	require.NotNil(t, doc.Market)
	assert.Equal(t, 190.5, doc.Market.CurrentPrice)
	assert.Equal(t, "Technology", doc.Market.Sector)
	assert.True(t, doc.Market.HasEarnings)
	assert.Equal(t, 1.64, doc.Market.ActualEPS)
	assert.Len(t, doc.Market.Closes, 4)
}

func TestFetchServesSecondCallFromCache(t *testing.T) {
	var calls atomic.Int32
	agent, _ := newTestAgent(t, quoteHandler(&calls))

	_, err := agent.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	docs, err := agent.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(1), calls.Load(), "second fetch must not reach upstream")
	assert.Equal(t, 190.5, docs[0].Market.CurrentPrice)
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	agent, _ := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := agent.Fetch(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPermanentSource))
	assert.False(t, errors.Retryable(err))
	assert.Equal(t, int32(1), calls.Load(), "permanent failures must not be retried")

	var srcErr *errors.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "market-data", srcErr.Source)
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	inner := quoteHandler(&calls)
	agent, _ := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 0 {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		inner(w, r)
	})

	docs, err := agent.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchExhaustsRetriesOnPersistentFailure(t *testing.T) {
	var calls atomic.Int32
	agent, _ := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := agent.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransientSource))
	assert.Equal(t, int32(3), calls.Load())
}
