package marketdata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/domain/tracking"
	"stockwatch/internal/testsupport"
	"stockwatch/pkg/errors"
)

type recordingCollector struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	active  int
	maxSeen int
}

func (c *recordingCollector) Collect(_ context.Context, symbol string) (market_data.Snapshot, error) {
	c.mu.Lock()
	c.calls = append(c.calls, symbol)
	c.active++
	if c.active > c.maxSeen {
		c.maxSeen = c.active
	}
	c.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()

	if c.fail[symbol] {
		return market_data.Snapshot{}, errors.ErrDataUnavailable
	}
	return market_data.Snapshot{Symbol: symbol}, nil
}

func track(t *testing.T, repo *testsupport.MemoryPositions, symbol string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &tracking.Position{
		UserID: uuid.New(), StockID: uuid.New(), Symbol: symbol, Active: true,
	}))
}

func TestRefreshWorker_DedupesAndBoundsConcurrency(t *testing.T) {
	positions := testsupport.NewMemoryPositions()
	for _, s := range []string{"AAPL", "MSFT", "AAPL", "NVDA", "TSLA"} {
		track(t, positions, s)
	}
	collector := &recordingCollector{}

	w := NewRefreshWorker(positions, collector, 2, time.Hour, true)
	require.NoError(t, w.Run(context.Background()))

	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "NVDA", "TSLA"}, collector.calls)
	assert.LessOrEqual(t, collector.maxSeen, 2)
}

func TestRefreshWorker_PartialFailureSucceeds(t *testing.T) {
	positions := testsupport.NewMemoryPositions()
	track(t, positions, "AAPL")
	track(t, positions, "MSFT")

	w := NewRefreshWorker(positions, &recordingCollector{fail: map[string]bool{"AAPL": true}}, 4, time.Hour, true)
	assert.NoError(t, w.Run(context.Background()))

	w = NewRefreshWorker(positions, &recordingCollector{fail: map[string]bool{"AAPL": true, "MSFT": true}}, 4, time.Hour, true)
	assert.True(t, errors.Is(w.Run(context.Background()), errors.ErrDataUnavailable))
}

func TestRefreshWorker_NothingTracked(t *testing.T) {
	collector := &recordingCollector{}
	w := NewRefreshWorker(testsupport.NewMemoryPositions(), collector, 0, time.Hour, true)

	assert.NoError(t, w.Run(context.Background()))
	assert.Empty(t, collector.calls)
}
