package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stockwatch/internal/adapters/clickhouse"
	"stockwatch/internal/adapters/config"
	"stockwatch/internal/domain/market_data"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return &ClickHouseTestHelper{client: client}
}

// NewTestClickHouse skips unless CLICKHOUSE_HOST is set and short mode is off
func NewTestClickHouse(t *testing.T) *ClickHouseTestHelper {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	RequireEnv(t, "CLICKHOUSE_HOST")

	return NewClickHouseTestHelper(t, LoadDatabaseConfigsFromEnv(t).ClickHouse)
}

func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the provided table immediately.
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// RegisterSymbolCleanup deletes a symbol's rows from table after the test
func (h *ClickHouseTestHelper) RegisterSymbolCleanup(t *testing.T, table, symbol string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.client.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE symbol = $1", table), symbol)
	})
}

// OHLCVFixture builds daily bars with sensible defaults
type OHLCVFixture struct {
	bar market_data.OHLCV
}

func NewOHLCVFixture() *OHLCVFixture {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	return &OHLCVFixture{bar: market_data.OHLCV{
		Symbol: "AAPL",
		Date:   day,
		Open:   100,
		High:   102,
		Low:    99,
		Close:  101,
		Volume: 1_000_000,
	}}
}

func (f *OHLCVFixture) WithSymbol(symbol string) *OHLCVFixture {
	f.bar.Symbol = symbol
	return f
}

func (f *OHLCVFixture) WithDate(d time.Time) *OHLCVFixture {
	f.bar.Date = d.UTC().Truncate(24 * time.Hour)
	return f
}

// WithClose sets close and derives open/high/low around it
func (f *OHLCVFixture) WithClose(c float64) *OHLCVFixture {
	f.bar.Open = c
	f.bar.High = c * 1.01
	f.bar.Low = c * 0.99
	f.bar.Close = c
	return f
}

func (f *OHLCVFixture) WithVolume(v float64) *OHLCVFixture {
	f.bar.Volume = v
	return f
}

func (f *OHLCVFixture) Build() market_data.OHLCV {
	return f.bar
}

// BuildMany returns count consecutive daily bars ending at the fixture date,
// with closes rising by 1 per day
func (f *OHLCVFixture) BuildMany(count int) []market_data.OHLCV {
	bars := make([]market_data.OHLCV, 0, count)
	base := f.bar
	for i := 0; i < count; i++ {
		b := base
		b.Date = base.Date.AddDate(0, 0, i-count+1)
		c := base.Close + float64(i)
		b.Open, b.High, b.Low, b.Close = c, c*1.01, c*0.99, c
		bars = append(bars, b)
	}
	return bars
}
