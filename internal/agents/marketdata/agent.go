// Package marketdata wraps the external quote/earnings API behind the
// uniform source agent contract.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"finbrief/internal/adapters/config"
	"finbrief/internal/adapters/retry"
	"finbrief/internal/cache"
	"finbrief/internal/domain/document"
	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

const sourceName = "market-data"

// quoteResponse is the upstream payload shape. Normalization into
// document.MarketPayload happens before anything downstream sees it.
type quoteResponse struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Closes       []float64 `json:"closes"`
	CompanyName  string    `json:"company_name"`
	Sector       string    `json:"sector"`
	MarketCap    float64   `json:"market_cap"`
	PERatio      float64   `json:"pe_ratio"`
	High52Week   float64   `json:"fifty_two_week_high"`
	Low52Week    float64   `json:"fifty_two_week_low"`
	ConsensusEPS *float64  `json:"consensus_eps"`
	ActualEPS    *float64  `json:"actual_eps"`
}

// Agent fetches market data with cache-first reads and retried upstream calls
type Agent struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   cache.Cache
	ttl     time.Duration
	retry   *retry.Policy
	limiter *rate.Limiter
	log     *logger.Logger
	now     func() time.Time
}

// New creates a market data agent
func New(cfg config.MarketDataConfig, store cache.Cache, ttl time.Duration, policy *retry.Policy) *Agent {
	return &Agent{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   store,
		ttl:     ttl,
		retry:   policy,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), cfg.RateLimit/10+1),
		log:     logger.Get().With("agent", sourceName),
		now:     time.Now,
	}
}

// Source identifies this agent's origin
func (a *Agent) Source() document.Origin {
	return document.OriginMarketData
}

// Fetch returns the market data document for symbol, from cache when fresh
func (a *Agent) Fetch(ctx context.Context, symbol string) ([]document.SourceDocument, error) {
	key := cache.Key(sourceName, symbol)

	cached, hit, err := a.cache.Get(ctx, key)
	metrics.RecordCacheLookup(hit, err)
	if err == nil && hit {
		var doc document.SourceDocument
		if err := json.Unmarshal(cached, &doc); err == nil {
			return []document.SourceDocument{doc}, nil
		}
		// Corrupt cache entry; fall through to a fresh fetch
		a.log.Warnw("Discarding undecodable cache entry", "key", key)
	}

	start := a.now()
	var doc document.SourceDocument
	fetchErr := a.retry.Do(ctx, func() error {
		d, err := a.fetchQuote(ctx, symbol)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	metrics.RecordSourceFetch(sourceName, time.Since(start), fetchErr)
	if fetchErr != nil {
		return nil, fetchErr
	}

	if data, err := json.Marshal(doc); err == nil {
		if err := a.cache.Put(ctx, key, data, a.ttl); err != nil {
			a.log.Warnw("Cache write-through failed", "key", key, "error", err)
		}
	}

	return []document.SourceDocument{doc}, nil
}

// fetchQuote performs one upstream call and normalizes the payload
func (a *Agent) fetchQuote(ctx context.Context, symbol string) (document.SourceDocument, error) {
	var doc document.SourceDocument

	url := fmt.Sprintf("%s/v1/quote/%s", a.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return doc, errors.Wrap(err, "build quote request")
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return doc, errors.Wrap(err, "rate limiter wait")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return doc, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return doc, err
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return doc, errors.NewSourceError(sourceName, errors.ErrPermanentSource, errors.Wrap(err, "decode quote payload"))
	}

	return a.normalize(symbol, &quote), nil
}

// normalize converts the upstream payload to the common document shape
func (a *Agent) normalize(symbol string, quote *quoteResponse) document.SourceDocument {
	now := a.now()

	payload := &document.MarketPayload{
		CurrentPrice: quote.Price,
		Closes:       quote.Closes,
		CompanyName:  quote.CompanyName,
		Sector:       quote.Sector,
		MarketCap:    quote.MarketCap,
		PERatio:      quote.PERatio,
		High52Week:   quote.High52Week,
		Low52Week:    quote.Low52Week,
		SnapshotAt:   now,
	}
	if quote.ConsensusEPS != nil && quote.ActualEPS != nil {
		payload.ConsensusEPS = *quote.ConsensusEPS
		payload.ActualEPS = *quote.ActualEPS
		payload.HasEarnings = true
	}

	return document.SourceDocument{
		ID:        uuid.New(),
		Symbol:    symbol,
		Origin:    document.OriginMarketData,
		Title:     fmt.Sprintf("%s market snapshot", symbol),
		Market:    payload,
		FetchedAt: now,
		TTL:       a.ttl,
	}
}

// classifyStatus maps HTTP status codes onto the error taxonomy
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.NewSourceError(sourceName, errors.ErrPermanentSource, errors.Newf("symbol not found (%d)", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.NewSourceError(sourceName, errors.ErrPermanentSource, errors.Newf("auth failure (%d)", code))
	case code == http.StatusTooManyRequests:
		return errors.NewSourceError(sourceName, errors.ErrRateLimited, errors.Newf("throttled (%d)", code))
	case code >= 500:
		return errors.NewSourceError(sourceName, errors.ErrTransientSource, errors.Newf("upstream error (%d)", code))
	default:
		return errors.NewSourceError(sourceName, errors.ErrPermanentSource, errors.Newf("unexpected status (%d)", code))
	}
}

// classifyTransportError treats network-level failures as transient
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewSourceError(sourceName, errors.ErrTransientSource, errors.Wrap(errors.ErrTimeout, err.Error()))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, "quote request cancelled")
	}
	return errors.NewSourceError(sourceName, errors.ErrTransientSource, err)
}
