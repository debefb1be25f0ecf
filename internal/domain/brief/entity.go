package brief

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"finbrief/internal/domain/analysis"
	"finbrief/internal/domain/document"
	"finbrief/pkg/errors"
)

// FocusArea narrows what the narrative should emphasize
type FocusArea string

const (
	FocusEarnings     FocusArea = "earnings"
	FocusRiskExposure FocusArea = "risk_exposure"
	FocusSentiment    FocusArea = "sentiment"
	FocusValuation    FocusArea = "valuation"
)

// Valid checks if the focus area is recognized
func (f FocusArea) Valid() bool {
	switch f {
	case FocusEarnings, FocusRiskExposure, FocusSentiment, FocusValuation:
		return true
	}
	return false
}

// Request describes one brief request. Immutable once submitted.
type Request struct {
	ID           uuid.UUID     `json:"id"`
	Symbols      []string      `json:"symbols"`
	FocusAreas   []FocusArea   `json:"focus_areas,omitempty"`
	Deadline     time.Duration `json:"deadline,omitempty"`
	IncludeVoice bool          `json:"include_voice"`
	SubmittedAt  time.Time     `json:"submitted_at"`
}

// Normalize uppercases and deduplicates symbols, preserving request order
func (r *Request) Normalize() {
	seen := make(map[string]struct{}, len(r.Symbols))
	out := r.Symbols[:0]
	for _, s := range r.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	r.Symbols = out
}

// Validate rejects requests the orchestrator cannot process
func (r *Request) Validate() error {
	if len(r.Symbols) == 0 {
		return errors.Wrap(errors.ErrInvalidRequest, "symbol set is empty")
	}
	for _, f := range r.FocusAreas {
		if !f.Valid() {
			return errors.Wrapf(errors.ErrInvalidRequest, "unknown focus area %q", f)
		}
	}
	return nil
}

// Status marks how completely a brief or symbol entry was served
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// ContextSnippet is one retrieved document reference attached to a symbol
type ContextSnippet struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Title      string          `json:"title"`
	Origin     document.Origin `json:"origin"`
	Score      float64         `json:"score"`
}

// SymbolBrief is the per-symbol slice of a market brief. Every requested
// symbol gets exactly one entry; silent omission is a defect.
type SymbolBrief struct {
	Symbol           string           `json:"symbol"`
	Status           Status           `json:"status"`
	Reason           string           `json:"reason,omitempty"`
	FailedSources    []string         `json:"failed_sources,omitempty"`
	Analysis         *analysis.Result `json:"analysis,omitempty"`
	Headlines        []string         `json:"headlines,omitempty"`
	Context          []ContextSnippet `json:"context,omitempty"`
	NarrativeExcerpt string           `json:"narrative_excerpt,omitempty"`
}

// MarketBrief is the aggregate response for one request
type MarketBrief struct {
	RequestID   uuid.UUID                   `json:"request_id"`
	Status      Status                      `json:"status"`
	PerSymbol   map[string]*SymbolBrief     `json:"per_symbol"`
	Portfolio   *analysis.PortfolioSummary  `json:"portfolio,omitempty"`
	Narrative   string                      `json:"narrative"`
	Audio       []byte                      `json:"audio,omitempty"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Elapsed     time.Duration               `json:"elapsed"`
}

// DeriveStatus computes the top-level status: complete only when every
// requested symbol is complete, failed only when none produced anything
func (b *MarketBrief) DeriveStatus() Status {
	if len(b.PerSymbol) == 0 {
		return StatusFailed
	}

	complete, failed := 0, 0
	for _, sb := range b.PerSymbol {
		switch sb.Status {
		case StatusComplete:
			complete++
		case StatusFailed:
			failed++
		}
	}

	switch {
	case complete == len(b.PerSymbol):
		return StatusComplete
	case failed == len(b.PerSymbol):
		return StatusFailed
	default:
		return StatusPartial
	}
}
