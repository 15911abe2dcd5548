package marketdata

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/domain/tracking"
	"stockwatch/internal/workers"
	"stockwatch/pkg/errors"
)

// Collector is satisfied by the collection agent, which persists what it gathers
type Collector interface {
	Collect(ctx context.Context, symbol string) (market_data.Snapshot, error)
}

// RefreshWorker re-collects every tracked symbol so stored history and news stay warm
type RefreshWorker struct {
	*workers.BaseWorker
	positions     tracking.Repository
	collector     Collector
	maxConcurrent int
}

func NewRefreshWorker(
	positions tracking.Repository,
	collector Collector,
	maxConcurrent int,
	interval time.Duration,
	enabled bool,
) *RefreshWorker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &RefreshWorker{
		BaseWorker:    workers.NewBaseWorker("market_refresh", interval, enabled),
		positions:     positions,
		collector:     collector,
		maxConcurrent: maxConcurrent,
	}
}

// Run collects each distinct symbol once. Individual failures are logged;
// the run fails only when every symbol failed.
func (w *RefreshWorker) Run(ctx context.Context) error {
	symbols, err := w.symbols(ctx)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		w.Log().Debugw("No tracked symbols to refresh")
		return nil
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrent)

	for i, symbol := range symbols {
		if gctx.Err() != nil {
			w.Log().Infow("Refresh interrupted by shutdown",
				"symbols_processed", i,
				"symbols_remaining", len(symbols)-i,
			)
			break
		}

		g.Go(func() error {
			if _, err := w.collector.Collect(gctx, symbol); err != nil {
				failed.Add(1)
				w.Log().Warnw("Failed to refresh symbol", "symbol", symbol, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	n := int(failed.Load())
	w.Log().Infow("Market data refresh complete", "symbols", len(symbols), "failed", n)
	if n == len(symbols) {
		return errors.Wrapf(errors.ErrDataUnavailable, "all %d symbols failed to refresh", n)
	}
	return nil
}

func (w *RefreshWorker) symbols(ctx context.Context) ([]string, error) {
	positions, err := w.positions.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active positions")
	}

	seen := make(map[string]struct{}, len(positions))
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Symbol]; ok {
			continue
		}
		seen[p.Symbol] = struct{}{}
		symbols = append(symbols, p.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}
