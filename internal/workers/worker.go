package workers

import (
	"context"
	"sync"
	"time"

	"finbrief/pkg/logger"
)

// Worker is one background maintenance task driven by the scheduler
type Worker interface {
	// Name identifies the worker in logs and metrics
	Name() string

	// Run performs one iteration of the task; the scheduler calls it once
	// at startup and then on every tick
	Run(ctx context.Context) error

	// Interval is the tick period between runs
	Interval() time.Duration

	// Enabled reports whether the scheduler should run this worker at all
	Enabled() bool
}

// Stats is a snapshot of a worker's run history
type Stats struct {
	LastRun     time.Time
	LastError   error
	RunCount    int64
	ErrorCount  int64
	AvgDuration time.Duration
}

// BaseWorker carries the name, interval and run bookkeeping shared by every
// worker. Concrete workers embed it and implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu            sync.RWMutex
	lastRun       time.Time
	lastError     error
	runCount      int64
	errorCount    int64
	totalDuration time.Duration
}

// NewBaseWorker creates the shared worker state
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

// Name returns the worker name
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Enabled reports whether the worker should run; fixed at construction
func (w *BaseWorker) Enabled() bool {
	return w.enabled
}

// Log returns the worker-scoped logger
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Stats returns a snapshot of the run history
func (w *BaseWorker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	avg := time.Duration(0)
	if w.runCount > 0 {
		avg = time.Duration(int64(w.totalDuration) / w.runCount)
	}

	return Stats{
		LastRun:     w.lastRun,
		LastError:   w.lastError,
		RunCount:    w.runCount,
		ErrorCount:  w.errorCount,
		AvgDuration: avg,
	}
}

// RecordRun records a successful run
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.totalDuration += duration
	w.lastError = err
}
