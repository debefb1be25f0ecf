// Package scraper pulls recent financial headlines from RSS feeds and
// optionally expands them into full article bodies.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"finbrief/internal/adapters/config"
	"finbrief/internal/adapters/retry"
	"finbrief/internal/cache"
	"finbrief/internal/domain/document"
	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

const sourceName = "scraped-news"

// Agent fetches headlines for one symbol per call. Feed failures are
// retried as transient; a single unreadable article never fails the batch.
type Agent struct {
	cfg     config.ScraperConfig
	parser  *gofeed.Parser
	client  *http.Client
	cache   cache.Cache
	ttl     time.Duration
	retry   *retry.Policy
	limiter *rate.Limiter
	log     *logger.Logger
	now     func() time.Time
}

// New creates a news scraping agent
func New(cfg config.ScraperConfig, store cache.Cache, ttl time.Duration, policy *retry.Policy) *Agent {
	client := &http.Client{Timeout: cfg.Timeout}
	parser := gofeed.NewParser()
	parser.Client = client

	return &Agent{
		cfg:     cfg,
		parser:  parser,
		client:  client,
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
	return document.OriginScrapedNews
}

// Fetch returns recent news documents for symbol, from cache when fresh
func (a *Agent) Fetch(ctx context.Context, symbol string) ([]document.SourceDocument, error) {
	key := cache.Key(sourceName, symbol)

	cached, hit, err := a.cache.Get(ctx, key)
	metrics.RecordCacheLookup(hit, err)
	if err == nil && hit {
		var docs []document.SourceDocument
		if err := json.Unmarshal(cached, &docs); err == nil {
			return docs, nil
		}
		a.log.Warnw("Discarding undecodable cache entry", "key", key)
	}

	start := a.now()
	var docs []document.SourceDocument
	fetchErr := a.retry.Do(ctx, func() error {
		d, err := a.fetchFeed(ctx, symbol)
		if err != nil {
			return err
		}
		docs = d
		return nil
	})
	metrics.RecordSourceFetch(sourceName, time.Since(start), fetchErr)
	if fetchErr != nil {
		return nil, fetchErr
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := a.cache.Put(ctx, key, data, a.ttl); err != nil {
			a.log.Warnw("Cache write-through failed", "key", key, "error", err)
		}
	}

	return docs, nil
}

// fetchFeed parses the symbol's feed and normalizes its items
func (a *Agent) fetchFeed(ctx context.Context, symbol string) ([]document.SourceDocument, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait")
	}

	feedURL := fmt.Sprintf(a.cfg.FeedURLTemplate, symbol)
	feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(err, "feed fetch cancelled")
		}
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return nil, errors.NewSourceError(sourceName, errors.ErrPermanentSource, err)
		}
		return nil, errors.NewSourceError(sourceName, errors.ErrTransientSource, err)
	}

	now := a.now()
	limit := a.cfg.MaxArticles
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	docs := make([]document.SourceDocument, 0, limit)
	for _, item := range feed.Items[:limit] {
		doc := document.SourceDocument{
			ID:        uuid.New(),
			Symbol:    symbol,
			Origin:    document.OriginScrapedNews,
			Title:     item.Title,
			Content:   stripHTML(item.Description),
			Link:      item.Link,
			FetchedAt: now,
			TTL:       a.ttl,
		}
		if a.cfg.FetchArticles && item.Link != "" {
			if body := a.readArticle(item.Link); body != "" {
				doc.Content = body
			}
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// stripHTML flattens feed descriptions that arrive as HTML fragments
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// readArticle extracts the readable body of one article, best effort
func (a *Agent) readArticle(link string) string {
	article, err := readability.FromURL(link, a.cfg.Timeout)
	if err != nil {
		a.log.Debugw("Article extraction failed", "link", link, "error", err)
		return ""
	}
	return article.TextContent
}
