package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbrief/internal/domain/analysis"
	"finbrief/internal/domain/document"
	"finbrief/pkg/errors"
)

func marketDoc(symbol string, payload document.MarketPayload) document.SourceDocument {
	return document.SourceDocument{
		Symbol:    symbol,
		Origin:    document.OriginMarketData,
		Market:    &payload,
		FetchedAt: time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzeComputesMetrics(t *testing.T) {
	engine := New(5.0)

	docs := []document.SourceDocument{
		marketDoc("AAPL", document.MarketPayload{
			CurrentPrice: 180,
			Closes:       []float64{170, 172, 168, 175, 180},
			Sector:       "Technology",
			MarketCap:    2.8e12,
			PERatio:      28,
			High52Week:   200,
			Low52Week:    150,
		}),
	}

	result, err := engine.Analyze("AAPL", docs)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Symbol)
	assert.Greater(t, result.Volatility, 0.0)
	// price 180 in [150, 200] sits at 60% of the band
	assert.InDelta(t, 60.0, result.ExposurePct, 0.001)
	assert.False(t, result.EarningsSurprise)
	assert.Equal(t, analysis.RecommendHold, result.Recommendation)
}

func TestAnalyzeNoMarketDocIsInsufficient(t *testing.T) {
	engine := New(5.0)

	docs := []document.SourceDocument{
		{Symbol: "AAPL", Origin: document.OriginScrapedNews, Title: "headline"},
	}

	_, err := engine.Analyze("AAPL", docs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestAnalyzeZeroPriceIsInsufficient(t *testing.T) {
	engine := New(5.0)

	docs := []document.SourceDocument{
		marketDoc("AAPL", document.MarketPayload{CurrentPrice: 0}),
	}

	_, err := engine.Analyze("AAPL", docs)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestEarningsSurpriseThreshold(t *testing.T) {
	engine := New(5.0)

	cases := []struct {
		name      string
		consensus float64
		actual    float64
		surprise  bool
		pct       float64
	}{
		{"ten percent beat", 1.00, 1.10, true, 10.0},
		{"two percent beat", 1.00, 1.02, false, 2.0},
		{"exactly at threshold", 1.00, 1.05, false, 5.0},
		{"ten percent miss", 1.00, 0.90, true, -10.0},
		{"no earnings reported", 0, 0, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := document.MarketPayload{
				CurrentPrice: 100,
				High52Week:   110,
				Low52Week:    90,
			}
			if tc.consensus != 0 {
				payload.ConsensusEPS = tc.consensus
				payload.ActualEPS = tc.actual
				payload.HasEarnings = true
			}

			result, err := engine.Analyze("TEST", []document.SourceDocument{marketDoc("TEST", payload)})
			require.NoError(t, err)
			assert.Equal(t, tc.surprise, result.EarningsSurprise)
			assert.InDelta(t, tc.pct, result.SurprisePct, 0.001)
		})
	}
}

func TestRecommendationHeuristics(t *testing.T) {
	engine := New(5.0)

	t.Run("low PE triggers buy", func(t *testing.T) {
		result, err := engine.Analyze("VAL", []document.SourceDocument{
			marketDoc("VAL", document.MarketPayload{CurrentPrice: 95, PERatio: 12, High52Week: 100, Low52Week: 80}),
		})
		require.NoError(t, err)
		assert.Equal(t, analysis.RecommendBuy, result.Recommendation)
		assert.Contains(t, result.Reasons, "low P/E ratio")
	})

	t.Run("deep discount to high triggers buy", func(t *testing.T) {
		result, err := engine.Analyze("DIP", []document.SourceDocument{
			marketDoc("DIP", document.MarketPayload{CurrentPrice: 70, PERatio: 25, High52Week: 100, Low52Week: 60}),
		})
		require.NoError(t, err)
		assert.Equal(t, analysis.RecommendBuy, result.Recommendation)
		assert.Contains(t, result.Reasons, "significantly below 52-week high")
	})

	t.Run("neither condition holds", func(t *testing.T) {
		result, err := engine.Analyze("FAIR", []document.SourceDocument{
			marketDoc("FAIR", document.MarketPayload{CurrentPrice: 95, PERatio: 22, High52Week: 100, Low52Week: 80}),
		})
		require.NoError(t, err)
		assert.Equal(t, analysis.RecommendHold, result.Recommendation)
		assert.Empty(t, result.Reasons)
	})
}

func TestRangeExposureClamping(t *testing.T) {
	assert.InDelta(t, 100.0, rangeExposure(250, 200, 150), 0.001)
	assert.InDelta(t, 0.0, rangeExposure(100, 200, 150), 0.001)
	assert.InDelta(t, 50.0, rangeExposure(100, 100, 100), 0.001)
}

func TestShortCloseSeriesHasZeroVolatility(t *testing.T) {
	assert.Equal(t, 0.0, annualizedVolatility([]float64{100, 101}))
	assert.Equal(t, 0.0, annualizedVolatility(nil))
}

func TestPortfolioAggregation(t *testing.T) {
	engine := New(5.0)

	results := []analysis.Result{
		{Symbol: "AAPL", MarketCap: 3e12, PERatio: 30, Sector: "Technology"},
		{Symbol: "MSFT", MarketCap: 3e12, PERatio: 34, Sector: "Technology"},
		{Symbol: "JPM", MarketCap: 0.6e12, PERatio: 12, Sector: "Financials"},
		{Symbol: "XOM", MarketCap: 0.4e12, PERatio: 0, Sector: "Energy"},
	}

	summary := engine.Portfolio(results)
	assert.Equal(t, 4, summary.TotalStocks)
	assert.InDelta(t, 7e12, summary.TotalMarketCap, 1e6)
	assert.InDelta(t, 1.75e12, summary.AvgMarketCap, 1e6)
	// PE average skips the zero entry
	assert.InDelta(t, (30.0+34.0+12.0)/3.0, summary.AvgPERatio, 0.001)
	assert.Equal(t, 2, summary.SectorDistribution["Technology"])
	assert.Greater(t, summary.DiversificationScore, 0.0)
	assert.LessOrEqual(t, summary.DiversificationScore, 100.0)
}

func TestPortfolioSingleSectorScoresZero(t *testing.T) {
	engine := New(5.0)

	summary := engine.Portfolio([]analysis.Result{
		{Symbol: "AAPL", Sector: "Technology"},
		{Symbol: "MSFT", Sector: "Technology"},
	})
	assert.Equal(t, 0.0, summary.DiversificationScore)
}

func TestPortfolioEmpty(t *testing.T) {
	engine := New(5.0)
	summary := engine.Portfolio(nil)
	assert.Equal(t, 0, summary.TotalStocks)
	assert.Equal(t, 0.0, summary.DiversificationScore)
}
