package bootstrap

import (
	"context"
	"sync"
	"time"

	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown stops components in this order:
//  1. ops HTTP server, so probes fail fast
//  2. workers, letting an in-flight sweep finish
//  3. background goroutines
//  4. the Kafka producer, after the last sweep has published
//  5. tracing, error tracker and logs
//  6. stores, last because everything above may still use them
func (l *Lifecycle) Shutdown(c *Container) {
	log := c.Log
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	if srv := c.Application.HTTPServer; srv != nil {
		log.Infow("[1/6] Stopping HTTP server")
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := srv.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	if scheduler := c.Background.WorkerScheduler; scheduler != nil && scheduler.IsRunning() {
		log.Infow("[2/6] Stopping background workers")
		if err := scheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		}
	}

	log.Infow("[3/6] Waiting for goroutines")
	l.waitForGoroutines(c.WG, 5*time.Second, log)

	if producer := c.Adapters.KafkaProducer; producer != nil {
		log.Infow("[4/6] Closing Kafka producer")
		if err := producer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		}
	}

	log.Infow("[5/6] Flushing telemetry")
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(shutdownCtx); err != nil {
			log.Warnw("Tracing shutdown failed", "error", err)
		}
	}
	l.flushErrorTracker(shutdownCtx, c.ErrorTracker, log)

	log.Infow("[6/6] Closing stores")
	l.closeStores(c, log)

	log.Infow("Graceful shutdown complete")
	_ = logger.Sync()
}

// waitForGoroutines waits for wg with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Warnw("Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Warnw("Error tracker flush failed", "error", err)
	}
}

func (l *Lifecycle) closeStores(c *Container, log *logger.Logger) {
	var errs errors.MultiError

	if c.Influx != nil {
		c.Influx.Close()
	}
	if c.Badger != nil {
		errs.Add(errors.Wrap(c.Badger.Close(), "badger"))
	}
	if c.Redis != nil {
		errs.Add(errors.Wrap(c.Redis.Close(), "redis"))
	}
	if c.CH != nil {
		errs.Add(errors.Wrap(c.CH.Close(), "clickhouse"))
	}
	if c.PG != nil {
		errs.Add(errors.Wrap(c.PG.Close(), "postgres"))
	}

	if errs.HasErrors() {
		log.Warnw("Store close errors", "error", errs.ToError())
	}
}
