package testsupport

import (
	"context"
	"sync"
	"time"

	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/errors"
)

// FakeMarketData is a scripted marketdata.Provider. Queued prices are served
// in order and the last one repeats.
type FakeMarketData struct {
	mu        sync.Mutex
	prices    map[string][]float64
	quoteErr  map[string]error
	histories map[string][]market_data.OHLCV
	histErr   map[string]error
	marketCap map[string]float64
	asOf      func() time.Time
	calls     map[string]int
}

func NewFakeMarketData() *FakeMarketData {
	return &FakeMarketData{
		prices:    make(map[string][]float64),
		quoteErr:  make(map[string]error),
		histories: make(map[string][]market_data.OHLCV),
		histErr:   make(map[string]error),
		marketCap: make(map[string]float64),
		asOf:      time.Now,
		calls:     make(map[string]int),
	}
}

// QueuePrices appends prices served by successive CurrentPrice calls
func (f *FakeMarketData) QueuePrices(symbol string, prices ...float64) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = append(f.prices[symbol], prices...)
	return f
}

// FailQuote makes CurrentPrice fail with err until cleared with nil
func (f *FakeMarketData) FailQuote(symbol string, err error) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteErr[symbol] = err
	return f
}

func (f *FakeMarketData) SetMarketCap(symbol string, mcap float64) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketCap[symbol] = mcap
	return f
}

// SetQuoteTime pins the AsOf of every quote
func (f *FakeMarketData) SetQuoteTime(at time.Time) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asOf = func() time.Time { return at }
	return f
}

// SetCloses installs a daily history ending yesterday, oldest first
func (f *FakeMarketData) SetCloses(symbol string, closes ...float64) *FakeMarketData {
	return f.SetHistory(symbol, Bars(symbol, time.Now().UTC().AddDate(0, 0, -1), closes, nil))
}

func (f *FakeMarketData) SetHistory(symbol string, bars []market_data.OHLCV) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[symbol] = bars
	return f
}

func (f *FakeMarketData) FailHistory(symbol string, err error) *FakeMarketData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histErr[symbol] = err
	return f
}

// QuoteCalls reports how many CurrentPrice calls were made for symbol
func (f *FakeMarketData) QuoteCalls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *FakeMarketData) CurrentPrice(_ context.Context, symbol string) (market_data.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++

	if err := f.quoteErr[symbol]; err != nil {
		return market_data.Quote{}, err
	}
	queue := f.prices[symbol]
	if len(queue) == 0 {
		return market_data.Quote{}, errors.Wrapf(errors.ErrNotFound, "no price for %s", symbol)
	}
	price := queue[0]
	if len(queue) > 1 {
		f.prices[symbol] = queue[1:]
	}
	return market_data.Quote{
		Symbol:    symbol,
		Price:     price,
		MarketCap: f.marketCap[symbol],
		Currency:  "USD",
		AsOf:      f.asOf(),
	}, nil
}

// History returns the installed bars, newest last. days is ignored.
func (f *FakeMarketData) History(_ context.Context, symbol string, _ int) ([]market_data.OHLCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.histErr[symbol]; err != nil {
		return nil, err
	}
	bars, ok := f.histories[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no history for %s", symbol)
	}
	return append([]market_data.OHLCV(nil), bars...), nil
}

// Bars builds consecutive daily bars ending at last. volumes may be nil.
func Bars(symbol string, last time.Time, closes, volumes []float64) []market_data.OHLCV {
	bars := make([]market_data.OHLCV, len(closes))
	first := last.Truncate(24*time.Hour).AddDate(0, 0, -(len(closes) - 1))
	for i, c := range closes {
		vol := 1000.0
		if i < len(volumes) {
			vol = volumes[i]
		}
		bars[i] = market_data.OHLCV{
			Symbol: symbol,
			Date:   first.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: vol,
		}
	}
	return bars
}

// FakeNews serves fixed articles per symbol
type FakeNews struct {
	Articles map[string][]market_data.Article
	Err      error
}

func (f *FakeNews) RecentArticles(_ context.Context, symbol string, limit int) ([]market_data.Article, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	arts := f.Articles[symbol]
	if limit > 0 && len(arts) > limit {
		arts = arts[:limit]
	}
	return arts, nil
}

// FakeMarketRepo records upserts in memory
type FakeMarketRepo struct {
	mu       sync.Mutex
	Bars     []market_data.OHLCV
	Articles []market_data.Article
	Err      error
}

func (r *FakeMarketRepo) UpsertOHLCV(_ context.Context, bars []market_data.OHLCV) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Bars = append(r.Bars, bars...)
	return nil
}

func (r *FakeMarketRepo) UpsertNews(_ context.Context, articles []market_data.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Articles = append(r.Articles, articles...)
	return nil
}

func (r *FakeMarketRepo) GetOHLCV(_ context.Context, symbol string, from, to time.Time) ([]market_data.OHLCV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []market_data.OHLCV
	for _, b := range r.Bars {
		if b.Symbol == symbol && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *FakeMarketRepo) GetRecentNews(_ context.Context, symbol string, limit int) ([]market_data.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []market_data.Article
	for _, a := range r.Articles {
		if a.Symbol == symbol {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
