package workers

import (
	"context"
	"sync"
	"time"

	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// DefaultStopTimeout bounds how long Stop waits for in-flight iterations
const DefaultStopTimeout = 2 * time.Minute

// Scheduler runs each enabled worker in its own goroutine
type Scheduler struct {
	workers     []Worker
	stopTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	log         *logger.Logger
	started     bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		workers:     make([]Worker, 0),
		stopTimeout: DefaultStopTimeout,
		log:         logger.Get().With("component", "scheduler"),
	}
}

// WithStopTimeout overrides DefaultStopTimeout
func (s *Scheduler) WithStopTimeout(d time.Duration) *Scheduler {
	s.stopTimeout = d
	return s
}

// RegisterWorker adds a worker. Registration after Start is ignored.
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	started := 0
	for _, worker := range s.workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		s.wg.Add(1)
		go s.runWorker(worker)
		started++
	}

	s.log.Infow("Worker scheduler started", "workers", started)
	return nil
}

// Stop cancels all workers and waits up to the stop timeout for them to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Infow("Stopping worker scheduler")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Infow("All workers stopped gracefully")
	case <-time.After(s.stopTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", s.stopTimeout)
		shutdownErr = errors.Wrapf(errors.ErrTimeout, "shutdown timeout after %s", s.stopTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	s.executeWorker(worker)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Debugw("Worker stopping", "worker", worker.Name())
			return
		case <-ticker.C:
			s.executeWorker(worker)
		}
	}
}

// executeWorker runs one iteration; a panic is recorded as a failed run
func (s *Scheduler) executeWorker(worker Worker) {
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "worker %s panicked: %v", worker.Name(), r)
		}
		s.record(worker, err, time.Since(start))
	}()

	err = worker.Run(s.ctx)
}

func (s *Scheduler) record(worker Worker, err error, duration time.Duration) {
	// shutdown mid-iteration is not a failure
	if err != nil && s.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		err = nil
	}

	metrics.RecordWorkerExecution(worker.Name(), duration, err)

	h, tracked := worker.(healthReporter)
	if err != nil {
		s.log.Errorw("Worker execution failed", "worker", worker.Name(), "error", err, "duration", duration)
		if tracked {
			h.RecordError(err, duration)
		}
		return
	}

	s.log.Debugw("Worker execution completed", "worker", worker.Name(), "duration", duration)
	if tracked {
		h.RecordRun(duration)
	}
}

// GetWorkers returns the registered workers in registration order
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// Health reports bookkeeping for every worker that embeds BaseWorker
func (s *Scheduler) Health() map[string]WorkerHealth {
	out := make(map[string]WorkerHealth)
	for _, w := range s.GetWorkers() {
		if h, ok := w.(healthReporter); ok {
			out[w.Name()] = h.Health()
		}
	}
	return out
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
