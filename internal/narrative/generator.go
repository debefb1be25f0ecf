// Package narrative turns collected per-symbol data into a single prose
// market brief. Exactly one generation call happens per request, however
// many symbols it covers.
package narrative

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"finbrief/internal/adapters/ai"
	"finbrief/internal/domain/analysis"
	"finbrief/internal/domain/brief"
	"finbrief/pkg/logger"
)

// Fallback is returned when the generation provider is unreachable or errors
const Fallback = "Unable to generate market brief at this time."

// Headlines per symbol included in the prompt
const maxPromptHeadlines = 2

var tickerPattern = regexp.MustCompile(`^[A-Z.]{1,6}$`)

// defaultTickers backstops ticker extraction when the query names none
var defaultTickers = []string{"AAPL", "GOOGL", "MSFT", "AMZN"}

// Input carries everything the prompt needs, already collected and analyzed
type Input struct {
	Symbols    []string
	FocusAreas []brief.FocusArea
	PerSymbol  map[string]*brief.SymbolBrief
	Portfolio  *analysis.PortfolioSummary
}

// Generator builds prompts and delegates generation to one provider
type Generator struct {
	provider ai.Provider
	log      *logger.Logger
}

// New creates a narrative generator
func New(provider ai.Provider) *Generator {
	return &Generator{
		provider: provider,
		log:      logger.Get().With("component", "narrative"),
	}
}

// Generate produces the market brief narrative. On provider failure it
// returns the fallback text together with the error so the caller can
// degrade instead of failing the whole request.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	prompt := g.buildPrompt(in)

	text, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.log.Warnw("Narrative generation failed", "provider", g.provider.Name(), "error", err)
		return Fallback, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback, nil
	}
	return text, nil
}

// ExtractTickers pulls ticker symbols out of a free-form query. Falls back
// to a default basket when extraction fails or yields nothing usable.
func (g *Generator) ExtractTickers(ctx context.Context, query string) []string {
	prompt := fmt.Sprintf(`Extract stock ticker symbols from the following financial query.
Return ONLY the ticker symbols as a comma-separated list.
If no clear tickers are found, suggest relevant tech or finance tickers.

Query: %s`, query)

	text, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.log.Warnw("Ticker extraction failed", "error", err)
		return defaultTickers
	}

	tickers := parseTickers(text)
	if len(tickers) == 0 {
		return defaultTickers
	}
	return tickers
}

// parseTickers validates a comma-separated candidate list
func parseTickers(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(text, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if !tickerPattern.MatchString(ticker) {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		out = append(out, ticker)
	}
	return out
}

// buildPrompt renders the single combined prompt for the whole request
func (g *Generator) buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("Generate a comprehensive market brief based on the following financial data:\n\n")

	b.WriteString("Stock Overview:\n")
	for _, symbol := range in.Symbols {
		sb, ok := in.PerSymbol[symbol]
		if !ok || sb.Analysis == nil {
			fmt.Fprintf(&b, "%s: data unavailable\n", symbol)
			continue
		}
		a := sb.Analysis
		fmt.Fprintf(&b, "%s: Price=$%s, Market Cap=$%s, Volatility=%.1f%%, Range Exposure=%.0f%%",
			symbol,
			humanize.CommafWithDigits(a.CurrentPrice, 2),
			humanize.CommafWithDigits(a.MarketCap, 0),
			a.Volatility*100,
			a.ExposurePct)
		if a.EarningsSurprise {
			fmt.Fprintf(&b, ", Earnings Surprise=%+.1f%%", a.SurprisePct)
		}
		fmt.Fprintf(&b, ", Stance=%s", a.Recommendation)
		b.WriteString("\n")
	}

	b.WriteString("\nRecent News:\n")
	for _, symbol := range in.Symbols {
		sb, ok := in.PerSymbol[symbol]
		if !ok || len(sb.Headlines) == 0 {
			continue
		}
		headlines := sb.Headlines
		if len(headlines) > maxPromptHeadlines {
			headlines = headlines[:maxPromptHeadlines]
		}
		fmt.Fprintf(&b, "%s News: %s\n", symbol, strings.Join(headlines, ", "))
	}

	if in.Portfolio != nil {
		b.WriteString("\nRisk Analysis:\n")
		fmt.Fprintf(&b, "Total Stocks: %d\n", in.Portfolio.TotalStocks)
		fmt.Fprintf(&b, "Total Market Cap: $%s\n", humanize.CommafWithDigits(in.Portfolio.TotalMarketCap, 0))
		fmt.Fprintf(&b, "Diversification Score: %.1f/100\n", in.Portfolio.DiversificationScore)
		if sectors := sectorsByWeight(in.Portfolio.SectorDistribution); len(sectors) > 0 {
			fmt.Fprintf(&b, "Sectors: %s\n", strings.Join(sectors, ", "))
		}
	}

	b.WriteString("\nContextual Insights:\n")
	for _, symbol := range in.Symbols {
		sb, ok := in.PerSymbol[symbol]
		if !ok {
			continue
		}
		for _, snippet := range sb.Context {
			fmt.Fprintf(&b, "- %s\n", snippet.Title)
		}
	}

	if len(in.FocusAreas) > 0 {
		areas := make([]string, 0, len(in.FocusAreas))
		for _, f := range in.FocusAreas {
			areas = append(areas, string(f))
		}
		fmt.Fprintf(&b, "\nEmphasize these areas: %s\n", strings.Join(areas, ", "))
	}

	b.WriteString(`
Create a professional, concise market brief that provides:
1. An overview of stock performance
2. Key news highlights
3. Potential market implications
4. Brief risk assessment
`)

	return b.String()
}

// sectorsByWeight orders sector names by descending stock count
func sectorsByWeight(dist map[string]int) []string {
	names := make([]string, 0, len(dist))
	for name := range dist {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if dist[names[i]] != dist[names[j]] {
			return dist[names[i]] > dist[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
