// Package analysis computes per-symbol quantitative metrics and portfolio
// aggregates from normalized market snapshots. The engine is pure: no I/O,
// no clocks, deterministic output for a given input.
package analysis

import (
	"math"

	"github.com/markcheno/go-talib"

	"finbrief/internal/domain/analysis"
	"finbrief/internal/domain/document"
	"finbrief/pkg/errors"
)

// Trading days used to annualize daily return volatility
const annualizationFactor = 252

// Heuristic valuation thresholds
const (
	lowPERatio      = 15.0
	belowHighPctBuy = 20.0
	minClosesForVol = 3
)

// Engine derives analysis results from source documents
type Engine struct {
	surpriseThresholdPct float64
}

// New creates an analysis engine. surpriseThresholdPct is the minimum EPS
// deviation, in percent, that counts as an earnings surprise.
func New(surpriseThresholdPct float64) *Engine {
	return &Engine{surpriseThresholdPct: surpriseThresholdPct}
}

// Analyze computes the metrics for one symbol from its fetched documents.
// Returns ErrInsufficientData when no usable market snapshot is present.
func (e *Engine) Analyze(symbol string, docs []document.SourceDocument) (analysis.Result, error) {
	var market *document.MarketPayload
	var snapshot document.SourceDocument
	for _, doc := range docs {
		if doc.Origin == document.OriginMarketData && doc.Market != nil {
			market = doc.Market
			snapshot = doc
			break
		}
	}
	if market == nil {
		return analysis.Result{}, errors.Wrapf(errors.ErrInsufficientData, "no market snapshot for %s", symbol)
	}
	if market.CurrentPrice <= 0 {
		return analysis.Result{}, errors.Wrapf(errors.ErrInsufficientData, "no price for %s", symbol)
	}

	result := analysis.Result{
		Symbol:       symbol,
		CurrentPrice: market.CurrentPrice,
		MarketCap:    market.MarketCap,
		PERatio:      market.PERatio,
		Sector:       market.Sector,
		SnapshotAt:   snapshot.FetchedAt,
	}

	result.Volatility = annualizedVolatility(market.Closes)
	result.ExposurePct = rangeExposure(market.CurrentPrice, market.High52Week, market.Low52Week)
	result.EarningsSurprise, result.SurprisePct = e.earningsSurprise(market)
	result.Recommendation, result.Reasons = recommend(market)

	return result, nil
}

// annualizedVolatility converts a chronological close series into the
// annualized standard deviation of daily returns. Returns 0 when the series
// is too short to say anything.
func annualizedVolatility(closes []float64) float64 {
	if len(closes) < minClosesForVol {
		return 0
	}

	// Roc yields percent change per step; the first element is padding
	roc := talib.Roc(closes, 1)
	returns := roc[1:]

	dev := talib.StdDev(returns, len(returns), 1.0)
	daily := dev[len(dev)-1] / 100.0

	return daily * math.Sqrt(annualizationFactor)
}

// rangeExposure positions price inside the 52-week band as a 0-100 percent.
// A degenerate band reads as the midpoint.
func rangeExposure(price, high, low float64) float64 {
	if high <= low {
		return 50
	}
	pct := (price - low) / (high - low) * 100
	return math.Max(0, math.Min(100, pct))
}

// earningsSurprise flags a surprise only when the EPS deviation exceeds the
// threshold strictly. A deviation exactly at the threshold does not count.
func (e *Engine) earningsSurprise(m *document.MarketPayload) (bool, float64) {
	if !m.HasEarnings || m.ConsensusEPS == 0 {
		return false, 0
	}
	pct := (m.ActualEPS - m.ConsensusEPS) / math.Abs(m.ConsensusEPS) * 100
	return math.Abs(pct) > e.surpriseThresholdPct, pct
}

// recommend applies the valuation heuristics. Either trigger flips the
// stance to buy; reasons accumulate independently.
func recommend(m *document.MarketPayload) (analysis.Recommendation, []string) {
	stance := analysis.RecommendHold
	var reasons []string

	if m.PERatio > 0 && m.PERatio < lowPERatio {
		stance = analysis.RecommendBuy
		reasons = append(reasons, "low P/E ratio")
	}
	if m.High52Week > 0 && m.CurrentPrice > 0 {
		fromHigh := (m.High52Week - m.CurrentPrice) / m.High52Week * 100
		if fromHigh > belowHighPctBuy {
			stance = analysis.RecommendBuy
			reasons = append(reasons, "significantly below 52-week high")
		}
	}

	return stance, reasons
}

// Portfolio aggregates per-symbol results into portfolio-level metrics
func (e *Engine) Portfolio(results []analysis.Result) analysis.PortfolioSummary {
	summary := analysis.PortfolioSummary{
		TotalStocks:        len(results),
		SectorDistribution: make(map[string]int),
	}
	if len(results) == 0 {
		return summary
	}

	var peSum float64
	var peCount int
	for _, r := range results {
		summary.TotalMarketCap += r.MarketCap
		if r.PERatio > 0 {
			peSum += r.PERatio
			peCount++
		}
		sector := r.Sector
		if sector == "" {
			sector = "Unknown"
		}
		summary.SectorDistribution[sector]++
	}

	summary.AvgMarketCap = summary.TotalMarketCap / float64(len(results))
	if peCount > 0 {
		summary.AvgPERatio = peSum / float64(peCount)
	}
	summary.DiversificationScore = diversificationScore(summary.SectorDistribution)

	return summary
}

// diversificationScore is a normalized sector entropy on a 0-100 scale.
// A single-sector portfolio scores 0, an even spread across sectors 100.
func diversificationScore(sectors map[string]int) float64 {
	total := 0
	for _, count := range sectors {
		total += count
	}
	if total == 0 || len(sectors) < 2 {
		return 0
	}

	var entropy float64
	for _, count := range sectors {
		p := float64(count) / float64(total)
		entropy += -p * math.Log(p)
	}

	score := entropy / math.Log(float64(len(sectors))) * 100
	return math.Max(0, math.Min(100, score))
}
