package analysis

import (
	"fmt"
	"time"
)

// Recommendation is the heuristic position stance derived from valuation
type Recommendation string

const (
	RecommendBuy  Recommendation = "buy"
	RecommendHold Recommendation = "hold"
)

// Result holds the quantitative metrics computed for one symbol from a
// specific market data snapshot. SnapshotAt makes staleness auditable.
type Result struct {
	Symbol string `json:"symbol"`

	// Volatility is the annualized standard deviation of daily returns
	Volatility float64 `json:"volatility"`
	// ExposurePct positions the current price inside the 52-week range (0-100)
	ExposurePct float64 `json:"exposure_pct"`

	EarningsSurprise bool    `json:"earnings_surprise"`
	SurprisePct      float64 `json:"surprise_pct"`

	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	PERatio      float64 `json:"pe_ratio"`
	Sector       string  `json:"sector"`

	Recommendation Recommendation `json:"recommendation"`
	Reasons        []string       `json:"reasons,omitempty"`

	SnapshotAt time.Time `json:"snapshot_at"`
}

// Summary returns the one-line digest used as a narrative excerpt
func (r *Result) Summary() string {
	s := fmt.Sprintf("%s: price %.2f, volatility %.1f%%, range exposure %.0f%%",
		r.Symbol, r.CurrentPrice, r.Volatility*100, r.ExposurePct)
	if r.EarningsSurprise {
		s += fmt.Sprintf(", earnings surprise %.1f%%", r.SurprisePct)
	}
	return s
}

// PortfolioSummary aggregates per-symbol results across the whole request
type PortfolioSummary struct {
	TotalStocks          int                `json:"total_stocks"`
	TotalMarketCap       float64            `json:"total_market_cap"`
	AvgMarketCap         float64            `json:"avg_market_cap"`
	AvgPERatio           float64            `json:"avg_pe_ratio"`
	SectorDistribution   map[string]int     `json:"sector_distribution"`
	DiversificationScore float64            `json:"diversification_score"` // 0-100
}
