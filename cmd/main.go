package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finbrief/internal/adapters/ai"
	"finbrief/internal/adapters/config"
	"finbrief/internal/adapters/embeddings"
	"finbrief/internal/adapters/errors/noop"
	"finbrief/internal/adapters/errors/sentry"
	"finbrief/internal/adapters/kafka"
	"finbrief/internal/adapters/retry"
	"finbrief/internal/adapters/speech"
	"finbrief/internal/agents"
	"finbrief/internal/agents/marketdata"
	"finbrief/internal/agents/scraper"
	analysisengine "finbrief/internal/analysis"
	"finbrief/internal/api"
	"finbrief/internal/api/health"
	"finbrief/internal/cache"
	"finbrief/internal/events"
	"finbrief/internal/metrics"
	"finbrief/internal/narrative"
	"finbrief/internal/orchestrator"
	"finbrief/internal/repository/postgres"
	"finbrief/internal/retriever"
	"finbrief/internal/voice"
	"finbrief/internal/workers"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared cache: Redis when configured, in-process otherwise
	var store cache.Cache
	var memStore *cache.Memory
	if cfg.Redis.Enabled() {
		redisStore, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		store = redisStore
		log.Infow("Cache backend ready", "backend", "redis", "addr", cfg.Redis.Addr())
	} else {
		memStore = cache.NewMemory()
		store = memStore
		log.Infow("Cache backend ready", "backend", "memory")
	}

	// Vector index with optional durable archive
	embedder, err := embeddings.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.EmbeddingModel, cfg.Orchestrator.CallTimeout)
	if err != nil {
		log.Fatalf("Failed to init embedding provider: %v", err)
	}

	var archive retriever.Archive
	var embeddingArchive *postgres.EmbeddingArchive
	if cfg.Postgres.Enabled() {
		embeddingArchive, err = postgres.NewEmbeddingArchive(cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer embeddingArchive.Close()
		archive = embeddingArchive
		log.Info("Embedding archive enabled")
	}
	index := retriever.New(embedder, archive)

	// Source agents share one retry policy
	policy := retry.New(retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
	})
	sourceAgents := []agents.SourceAgent{
		marketdata.New(cfg.MarketData, store, cfg.Cache.MarketTTL, policy),
		scraper.New(cfg.Scraper, store, cfg.Cache.NewsTTL, policy),
	}

	// Narrative generation
	aiProvider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("Failed to init AI provider: %v", err)
	}
	generator := narrative.New(aiProvider)
	log.Infow("Narrative provider ready", "provider", aiProvider.Name())

	// Voice gateway, optional
	var voiceGateway *voice.Gateway
	if cfg.Voice.Enabled && cfg.AI.OpenAIKey != "" {
		speechClient, err := speech.NewOpenAI(cfg.AI.OpenAIKey, cfg.Voice)
		if err != nil {
			log.Fatalf("Failed to init speech client: %v", err)
		}
		voiceGateway = voice.New(speechClient, speechClient)
		log.Info("Voice gateway enabled")
	}

	// Event publishing, optional
	var publisher events.Publisher = events.NoopPublisher{}
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer)
		log.Infow("Event publishing enabled", "brokers", cfg.Kafka.Brokers)
	}

	orch := orchestrator.New(
		sourceAgents,
		index,
		analysisengine.New(cfg.Orchestrator.SurpriseThresholdPct),
		generator,
		voiceGateway,
		store,
		publisher,
		orchestrator.Config{
			CallTimeout:     cfg.Orchestrator.CallTimeout,
			RequestDeadline: cfg.Orchestrator.RequestDeadline,
			MaxConcurrency:  cfg.Orchestrator.MaxConcurrency,
			RetrievalK:      cfg.Orchestrator.RetrievalK,
		},
	)

	// Background maintenance
	scheduler := workers.NewScheduler()
	if memStore != nil {
		scheduler.RegisterWorker(workers.NewCacheEvictionWorker(memStore, cfg.Workers.CacheEvictionInterval))
	}
	var pruner workers.ArchivePruner
	if embeddingArchive != nil {
		pruner = embeddingArchive
	}
	scheduler.RegisterWorker(workers.NewIndexCompactionWorker(index, pruner, cfg.Workers.ArchiveRetention, cfg.Workers.IndexCompactionInterval))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	// HTTP surface
	healthHandler := health.New(cfg.App.Name, version).
		Require("cache", health.CheckerFunc(store.Health)).
		Require("index", health.CheckerFunc(index.Health))
	if embeddingArchive != nil {
		healthHandler.Observe("postgres", health.CheckerFunc(embeddingArchive.Health))
	}

	server := api.NewServer(cfg.HTTP, api.NewBriefHandler(orch), healthHandler, cfg.App.Name, version)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info("System initialized successfully")

	// Wait for shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	if err := scheduler.Stop(); err != nil {
		log.Errorf("Worker shutdown error: %v", err)
	}
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := errorTracker.Flush(flushCtx); err != nil {
		log.Warnf("Error tracker flush failed: %v", err)
	}

	log.Info("Shutdown complete")
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}
