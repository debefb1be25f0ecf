package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"finbrief/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Redis         RedisConfig
	Postgres      PostgresConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Voice         VoiceConfig
	MarketData    MarketDataConfig
	Scraper       ScraperConfig
	Cache         CacheConfig
	Orchestrator  OrchestratorConfig
	Retry         RetryConfig
	Workers       WorkerConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"finbrief"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"90s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis-backed cache is configured.
// When disabled the in-process cache is used instead.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// PostgresConfig configures the optional embedding archive.
// Leave POSTGRES_HOST empty to keep the index purely in memory.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"finbrief"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"finbrief"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

// KafkaConfig configures the optional brief-completed event stream.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type AIConfig struct {
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	GeminiKey       string `envconfig:"GEMINI_API_KEY"`
	DefaultProvider string `envconfig:"DEFAULT_AI_PROVIDER" default:"gemini"`
	GenerationModel string `envconfig:"GENERATION_MODEL"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

type VoiceConfig struct {
	Enabled            bool   `envconfig:"VOICE_ENABLED" default:"true"`
	TranscriptionModel string `envconfig:"VOICE_TRANSCRIPTION_MODEL" default:"whisper-1"`
	SpeechModel        string `envconfig:"VOICE_SPEECH_MODEL" default:"tts-1"`
	SpeechVoice        string `envconfig:"VOICE_SPEECH_VOICE" default:"alloy"`
}

type MarketDataConfig struct {
	BaseURL string        `envconfig:"MARKET_DATA_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"MARKET_DATA_API_KEY"`
	Timeout time.Duration `envconfig:"MARKET_DATA_TIMEOUT" default:"8s"`
	// Requests per minute against the upstream quote API
	RateLimit int `envconfig:"MARKET_DATA_RATE_LIMIT" default:"120"`
}

type ScraperConfig struct {
	// FeedURLTemplate expands %s to the ticker symbol
	FeedURLTemplate string        `envconfig:"SCRAPER_FEED_URL_TEMPLATE" default:"https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s"`
	FetchArticles   bool          `envconfig:"SCRAPER_FETCH_ARTICLES" default:"false"`
	MaxArticles     int           `envconfig:"SCRAPER_MAX_ARTICLES" default:"5"`
	Timeout         time.Duration `envconfig:"SCRAPER_TIMEOUT" default:"10s"`
	RateLimit       int           `envconfig:"SCRAPER_RATE_LIMIT" default:"60"`
}

type CacheConfig struct {
	MarketTTL time.Duration `envconfig:"CACHE_MARKET_TTL" default:"120s"`
	NewsTTL   time.Duration `envconfig:"CACHE_NEWS_TTL" default:"6h"`
}

type OrchestratorConfig struct {
	// CallTimeout bounds every individual sub-call (fetch, query, embed)
	CallTimeout time.Duration `envconfig:"ORCH_CALL_TIMEOUT" default:"10s"`
	// RequestDeadline bounds an entire brief request; always higher than CallTimeout
	RequestDeadline time.Duration `envconfig:"ORCH_REQUEST_DEADLINE" default:"45s"`
	MaxConcurrency  int           `envconfig:"ORCH_MAX_CONCURRENCY" default:"20"`
	RetrievalK      int           `envconfig:"ORCH_RETRIEVAL_K" default:"5"`
	// SurpriseThresholdPct flags an earnings surprise when actual EPS deviates
	// from consensus by strictly more than this percentage
	SurpriseThresholdPct float64 `envconfig:"ORCH_SURPRISE_THRESHOLD_PCT" default:"5.0"`
}

type RetryConfig struct {
	MaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"200ms"`
	MaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
}

type WorkerConfig struct {
	CacheEvictionInterval   time.Duration `envconfig:"WORKER_CACHE_EVICTION_INTERVAL" default:"5m"`
	IndexCompactionInterval time.Duration `envconfig:"WORKER_INDEX_COMPACTION_INTERVAL" default:"15m"`
	ArchiveRetention        time.Duration `envconfig:"WORKER_ARCHIVE_RETENTION" default:"720h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if cfg.Orchestrator.RequestDeadline <= cfg.Orchestrator.CallTimeout {
		return nil, errors.Wrapf(errors.ErrInvalidRequest,
			"request deadline %s must exceed per-call timeout %s",
			cfg.Orchestrator.RequestDeadline, cfg.Orchestrator.CallTimeout)
	}

	return &cfg, nil
}
