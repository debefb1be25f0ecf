package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"finbrief/pkg/errors"
)

// Config contains retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Policy applies exponential backoff with jitter to transient failures.
// Permanent errors and context cancellation abort immediately.
type Policy struct {
	config Config
}

// New creates a new retry policy
func New(config Config) *Policy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 200 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}

	return &Policy{config: config}
}

// Do executes fn until it succeeds, fails permanently, or attempts run out
func (p *Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !errors.Retryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == p.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(p.delay(attempt)):
		}
	}

	return errors.Wrapf(lastErr, "max attempts (%d) exhausted", p.config.MaxAttempts)
}

// delay computes the backoff for the given attempt: exponential growth
// capped at MaxDelay, with up to 25% random jitter to spread retries out
func (p *Policy) delay(attempt int) time.Duration {
	backoff := float64(p.config.InitialDelay) * math.Pow(p.config.Multiplier, float64(attempt))
	if backoff > float64(p.config.MaxDelay) {
		backoff = float64(p.config.MaxDelay)
	}

	jitter := backoff * 0.25 * rand.Float64()
	return time.Duration(backoff + jitter)
}
