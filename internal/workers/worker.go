package workers

import (
	"context"
	"sync"
	"time"

	"stockwatch/pkg/logger"
)

// Worker is one periodic job. Run completes a single iteration; the scheduler
// calls it immediately and then every Interval.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// WorkerHealth contains health information for a worker
type WorkerHealth struct {
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	AvgDuration time.Duration `json:"avg_duration"`
	Enabled     bool          `json:"enabled"`
}

// healthReporter is implemented by workers embedding BaseWorker
type healthReporter interface {
	Health() WorkerHealth
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
}

// BaseWorker provides name, interval and run bookkeeping for workers
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *logger.Logger

	healthMu      sync.RWMutex
	enabled       bool
	lastRun       time.Time
	lastError     error
	runCount      int64
	errorCount    int64
	totalDuration time.Duration
}

func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled && interval > 0,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

func (w *BaseWorker) Enabled() bool {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()
	return w.enabled
}

func (w *BaseWorker) SetEnabled(enabled bool) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	w.enabled = enabled
	w.log.Infow("Worker enabled state changed", "enabled", enabled)
}

func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health returns a snapshot of the run bookkeeping
func (w *BaseWorker) Health() WorkerHealth {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()

	h := WorkerHealth{
		LastRun:    w.lastRun,
		RunCount:   w.runCount,
		ErrorCount: w.errorCount,
		Enabled:    w.enabled,
	}
	if w.runCount > 0 {
		h.AvgDuration = time.Duration(int64(w.totalDuration) / w.runCount)
	}
	if w.lastError != nil {
		h.LastError = w.lastError.Error()
	}
	return h
}

func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
}

func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.totalDuration += duration
	w.lastError = err
}
