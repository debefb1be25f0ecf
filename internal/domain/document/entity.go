package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Origin identifies which source produced a document
type Origin string

const (
	OriginMarketData  Origin = "market-data"
	OriginScrapedNews Origin = "scraped-news"
	OriginFiling      Origin = "filing"
)

// Valid checks if origin is a known source
func (o Origin) Valid() bool {
	switch o {
	case OriginMarketData, OriginScrapedNews, OriginFiling:
		return true
	}
	return false
}

// String returns string representation
func (o Origin) String() string {
	return string(o)
}

// MarketPayload is the normalized shape of an upstream quote/earnings response.
// Source agents convert heterogeneous provider payloads into this form so the
// analysis engine and retriever never see provider-specific fields.
type MarketPayload struct {
	CurrentPrice  float64   `json:"current_price"`
	Closes        []float64 `json:"closes"` // chronological, oldest first
	CompanyName   string    `json:"company_name"`
	Sector        string    `json:"sector"`
	MarketCap     float64   `json:"market_cap"`
	PERatio       float64   `json:"pe_ratio"`
	High52Week    float64   `json:"high_52_week"`
	Low52Week     float64   `json:"low_52_week"`
	ConsensusEPS  float64   `json:"consensus_eps"`
	ActualEPS     float64   `json:"actual_eps"`
	HasEarnings   bool      `json:"has_earnings"`
	SnapshotAt    time.Time `json:"snapshot_at"`
}

// SourceDocument is the uniform unit every source agent returns.
// Owned by the producing agent until handed to the cache or retriever.
type SourceDocument struct {
	ID        uuid.UUID      `json:"id"`
	Symbol    string         `json:"symbol"`
	Origin    Origin         `json:"origin"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Link      string         `json:"link,omitempty"`
	Market    *MarketPayload `json:"market,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
	TTL       time.Duration  `json:"ttl"`
}

// ContentHash returns a stable digest of the document body. Re-ingesting a
// document with an unchanged hash is a no-op at the retriever.
func (d *SourceDocument) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(d.Symbol))
	h.Write([]byte(d.Origin))
	h.Write([]byte(d.Title))
	h.Write([]byte(d.Content))
	if d.Market != nil {
		fmt.Fprintf(h, "%.6f|%.6f|%d", d.Market.CurrentPrice, d.Market.MarketCap, len(d.Market.Closes))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fresh reports whether the document is still within its freshness TTL
func (d *SourceDocument) Fresh(now time.Time) bool {
	if d.TTL <= 0 {
		return true
	}
	return now.Before(d.FetchedAt.Add(d.TTL))
}

// SearchText returns the flat text representation used for embedding
func (d *SourceDocument) SearchText() string {
	if d.Market != nil {
		return fmt.Sprintf("Ticker: %s Company: %s Sector: %s Current Price: %.2f",
			d.Symbol, d.Market.CompanyName, d.Market.Sector, d.Market.CurrentPrice)
	}
	if d.Content != "" {
		return d.Title + " " + d.Content
	}
	return d.Title
}
