// Package orchestrator coordinates one brief request end to end: fan out to
// source agents, index what came back, analyze, retrieve context, generate
// one narrative and optionally voice it. A failing source degrades its
// symbol; it never takes the request down.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finbrief/internal/agents"
	analysisengine "finbrief/internal/analysis"
	"finbrief/internal/cache"
	"finbrief/internal/domain/analysis"
	"finbrief/internal/domain/brief"
	"finbrief/internal/domain/document"
	"finbrief/internal/events"
	"finbrief/internal/metrics"
	"finbrief/internal/narrative"
	"finbrief/internal/retriever"
	"finbrief/internal/voice"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

// Config bounds orchestration timing and fan-out width
type Config struct {
	// CallTimeout caps every individual sub-call
	CallTimeout time.Duration
	// RequestDeadline caps the whole request when the caller sets none
	RequestDeadline time.Duration
	MaxConcurrency  int
	RetrievalK      int
}

const defaultMaxConcurrency = 20

// Orchestrator runs the brief pipeline
type Orchestrator struct {
	agents    []agents.SourceAgent
	index     *retriever.Index
	engine    *analysisengine.Engine
	generator *narrative.Generator
	voice     *voice.Gateway
	store     cache.Cache
	publisher events.Publisher
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// New creates an orchestrator. voice may be nil when speech is disabled.
func New(
	sourceAgents []agents.SourceAgent,
	index *retriever.Index,
	engine *analysisengine.Engine,
	generator *narrative.Generator,
	voiceGateway *voice.Gateway,
	store cache.Cache,
	publisher events.Publisher,
	cfg Config,
) *Orchestrator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	// errgroup.SetLimit(0) would block every Go call forever
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	return &Orchestrator{
		agents:    sourceAgents,
		index:     index,
		engine:    engine,
		generator: generator,
		voice:     voiceGateway,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get().With("component", "orchestrator"),
		now:       time.Now,
	}
}

// fetchOutcome is the settled result of one (symbol, source) fetch
type fetchOutcome struct {
	symbol string
	source string
	docs   []document.SourceDocument
	err    error
}

// ProcessBrief serves one market brief request. The returned brief carries
// exactly one entry per requested symbol regardless of how sources fared.
// Only an invalid request or an unavailable hard dependency returns an error.
func (o *Orchestrator) ProcessBrief(ctx context.Context, req brief.Request) (*brief.MarketBrief, error) {
	start := o.now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	if err := o.checkDependencies(ctx); err != nil {
		return nil, err
	}

	deadline := o.cfg.RequestDeadline
	if req.Deadline > 0 && req.Deadline < deadline {
		deadline = req.Deadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	outcomes := o.fanOut(ctx, req.Symbols)

	result := &brief.MarketBrief{
		RequestID: req.ID,
		PerSymbol: make(map[string]*brief.SymbolBrief, len(req.Symbols)),
	}

	var analyses []analysis.Result
	for _, symbol := range req.Symbols {
		sb := o.assembleSymbol(ctx, symbol, req.FocusAreas, outcomes[symbol])
		result.PerSymbol[symbol] = sb
		if sb.Analysis != nil {
			analyses = append(analyses, *sb.Analysis)
		}
	}

	if len(analyses) > 0 {
		portfolio := o.engine.Portfolio(analyses)
		result.Portfolio = &portfolio
	}

	narrCtx, narrCancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	text, err := o.generator.Generate(narrCtx, narrative.Input{
		Symbols:    req.Symbols,
		FocusAreas: req.FocusAreas,
		PerSymbol:  result.PerSymbol,
		Portfolio:  result.Portfolio,
	})
	narrCancel()
	if err != nil {
		o.log.Warnw("Serving brief with fallback narrative", "request_id", req.ID, "error", err)
	}
	result.Narrative = text

	if req.IncludeVoice && o.voice != nil {
		voiceCtx, voiceCancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		result.Audio = o.voice.Synthesize(voiceCtx, text)
		voiceCancel()
	}

	result.Status = result.DeriveStatus()
	result.GeneratedAt = o.now()
	result.Elapsed = result.GeneratedAt.Sub(start)
	metrics.RecordBrief(string(result.Status), result.Elapsed)
	for _, sb := range result.PerSymbol {
		metrics.RecordSymbolOutcome(string(sb.Status))
	}

	o.publishCompletion(req, result)

	return result, nil
}

// ProcessVoiceBrief transcribes a spoken query, resolves its tickers and
// serves the resulting brief with audio included.
func (o *Orchestrator) ProcessVoiceBrief(ctx context.Context, audio []byte) (*brief.MarketBrief, string, error) {
	if o.voice == nil {
		return nil, "", errors.Wrap(errors.ErrDependencyUnavailable, "voice not configured")
	}

	transcribeCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	query, err := o.voice.Transcribe(transcribeCtx, audio)
	cancel()
	if err != nil {
		return nil, "", err
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	symbols := o.generator.ExtractTickers(extractCtx, query)
	cancel()

	req := brief.Request{
		Symbols:      symbols,
		IncludeVoice: true,
		SubmittedAt:  o.now(),
	}
	result, err := o.ProcessBrief(ctx, req)
	if err != nil {
		return nil, query, err
	}
	return result, query, nil
}

// checkDependencies gates the request on the hard dependencies being usable
func (o *Orchestrator) checkDependencies(ctx context.Context) error {
	if err := o.store.Health(ctx); err != nil {
		return errors.Wrap(errors.ErrDependencyUnavailable, "cache unavailable")
	}
	if err := o.index.Health(ctx); err != nil {
		return errors.Wrap(errors.ErrDependencyUnavailable, "index unavailable")
	}
	return nil
}

// fanOut runs every (symbol, source) fetch under bounded concurrency and a
// per-call timeout. Worker functions always return nil so one failure never
// cancels the siblings; errors settle into the outcome instead.
func (o *Orchestrator) fanOut(ctx context.Context, symbols []string) map[string][]fetchOutcome {
	var mu sync.Mutex
	outcomes := make(map[string][]fetchOutcome, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)

	for _, symbol := range symbols {
		for _, agent := range o.agents {
			symbol, agent := symbol, agent
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, o.cfg.CallTimeout)
				defer cancel()

				docs, err := agent.Fetch(callCtx, symbol)
				outcome := fetchOutcome{
					symbol: symbol,
					source: agent.Source().String(),
					docs:   docs,
					err:    err,
				}
				if err == nil {
					o.ingest(callCtx, docs)
				}

				mu.Lock()
				outcomes[symbol] = append(outcomes[symbol], outcome)
				mu.Unlock()
				return nil
			})
		}
	}

	g.Wait()
	return outcomes
}

// ingest indexes fetched documents; an embedding failure degrades retrieval
// context but not the source fetch that produced the documents
func (o *Orchestrator) ingest(ctx context.Context, docs []document.SourceDocument) {
	for _, doc := range docs {
		if _, err := o.index.Ingest(ctx, doc); err != nil {
			o.log.Warnw("Document ingest failed", "symbol", doc.Symbol, "origin", doc.Origin, "error", err)
		}
	}
}

// assembleSymbol folds one symbol's fetch outcomes into its brief entry
func (o *Orchestrator) assembleSymbol(ctx context.Context, symbol string, focus []brief.FocusArea, outcomes []fetchOutcome) *brief.SymbolBrief {
	sb := &brief.SymbolBrief{Symbol: symbol}

	var docs []document.SourceDocument
	var failReasons []string
	for _, out := range outcomes {
		if out.err != nil {
			sb.FailedSources = append(sb.FailedSources, out.source)
			failReasons = append(failReasons, fmt.Sprintf("%s %s", out.source, failureWord(out.err)))
			continue
		}
		docs = append(docs, out.docs...)
	}

	if len(docs) == 0 {
		sb.Status = brief.StatusFailed
		if len(failReasons) > 0 {
			sb.Reason = strings.Join(failReasons, "; ")
		} else {
			sb.Reason = "no data returned"
		}
		return sb
	}

	for _, doc := range docs {
		if doc.Origin == document.OriginScrapedNews && doc.Title != "" {
			sb.Headlines = append(sb.Headlines, doc.Title)
		}
	}

	if result, err := o.engine.Analyze(symbol, docs); err == nil {
		sb.Analysis = &result
		sb.NarrativeExcerpt = result.Summary()
	} else if errors.Is(err, errors.ErrInsufficientData) {
		failReasons = append(failReasons, "insufficient data for analysis")
	} else {
		o.log.Warnw("Analysis failed", "symbol", symbol, "error", err)
		failReasons = append(failReasons, "analysis error")
	}

	sb.Context = o.retrieveContext(ctx, symbol, focus)

	if len(failReasons) == 0 {
		sb.Status = brief.StatusComplete
	} else {
		sb.Status = brief.StatusPartial
		sb.Reason = strings.Join(failReasons, "; ")
	}
	return sb
}

// retrieveContext queries the index for supporting snippets, best effort.
// Documents past their freshness TTL are excluded; the index keeps them
// until compaction but they no longer belong in a current brief.
func (o *Orchestrator) retrieveContext(ctx context.Context, symbol string, focus []brief.FocusArea) []brief.ContextSnippet {
	if o.cfg.RetrievalK <= 0 {
		return nil
	}

	query := symbol
	for _, f := range focus {
		query += " " + string(f)
	}

	qctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	results, err := o.index.Query(qctx, query, o.cfg.RetrievalK)
	if err != nil {
		o.log.Warnw("Context retrieval failed", "symbol", symbol, "error", err)
		return nil
	}

	now := o.now()
	snippets := make([]brief.ContextSnippet, 0, len(results))
	for _, r := range results {
		if !r.Document.Fresh(now) {
			continue
		}
		snippets = append(snippets, brief.ContextSnippet{
			DocumentID: r.Document.ID,
			Title:      r.Document.Title,
			Origin:     r.Document.Origin,
			Score:      r.Score,
		})
	}
	return snippets
}

// publishCompletion emits the lifecycle events, best effort
func (o *Orchestrator) publishCompletion(req brief.Request, result *brief.MarketBrief) {
	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := events.BriefCompletedEvent{
		RequestID:   req.ID,
		Status:      result.Status,
		Symbols:     req.Symbols,
		ElapsedMS:   result.Elapsed.Milliseconds(),
		GeneratedAt: result.GeneratedAt,
	}
	if err := o.publisher.PublishBriefCompleted(pubCtx, event); err != nil {
		o.log.Warnw("Completion event publish failed", "request_id", req.ID, "error", err)
	}

	for _, symbol := range req.Symbols {
		sb := result.PerSymbol[symbol]
		if sb == nil {
			continue
		}
		for _, source := range sb.FailedSources {
			degraded := events.SourceDegradedEvent{
				RequestID:  req.ID,
				Symbol:     symbol,
				Source:     source,
				Reason:     sb.Reason,
				OccurredAt: result.GeneratedAt,
			}
			if err := o.publisher.PublishSourceDegraded(pubCtx, degraded); err != nil {
				o.log.Warnw("Degradation event publish failed", "request_id", req.ID, "source", source, "error", err)
			}
		}
	}
}

// failureWord distills an error into the short reason vocabulary
func failureWord(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.ErrTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrPermanentSource):
		return "rejected"
	default:
		return "unavailable"
	}
}
