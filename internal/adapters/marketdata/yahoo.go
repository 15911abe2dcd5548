package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/adapters/transport"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

const (
	providerName = "yahoo"
	userAgent    = "Mozilla/5.0 (compatible; stockwatch/1.0)"
)

// Yahoo implements Provider over the public v8 chart endpoint
type Yahoo struct {
	baseURL    string
	httpClient *http.Client
	retrier    *transport.Retrier
	limiter    *transport.Limiter
	now        func() time.Time
	log        *logger.Logger
}

var _ Provider = (*Yahoo)(nil)

func NewYahoo(cfg config.MarketDataConfig) *Yahoo {
	return &Yahoo{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retrier: transport.NewRetrier(transport.RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
		}),
		limiter: transport.NewLimiter(providerName, cfg.RequestsPM),
		now:     time.Now,
		log:     logger.Get().With("component", "yahoo_provider"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		RegularMarketVol   float64 `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string  `json:"symbol"`
			MarketCap float64 `json:"marketCap"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// CurrentPrice reads the regular market price from chart metadata. Market cap
// comes from the quote endpoint when it answers and stays 0 otherwise.
func (y *Yahoo) CurrentPrice(ctx context.Context, symbol string) (market_data.Quote, error) {
	end := y.now()
	res, err := y.chart(ctx, symbol, end.AddDate(0, 0, -5), end)
	if err != nil {
		return market_data.Quote{}, err
	}

	q := market_data.Quote{
		Symbol:   symbol,
		Price:    res.Meta.RegularMarketPrice,
		Volume:   res.Meta.RegularMarketVol,
		Currency: res.Meta.Currency,
		AsOf:     time.Unix(res.Meta.RegularMarketTime, 0).UTC(),
	}
	if res.Meta.RegularMarketTime == 0 {
		q.AsOf = end.UTC()
	}

	if mcap, err := y.marketCap(ctx, symbol); err != nil {
		y.log.Debugw("market cap unavailable", "symbol", symbol, "error", err)
	} else {
		q.MarketCap = mcap
	}
	return q, nil
}

// History returns daily bars, skipping days the API reports without a close
func (y *Yahoo) History(ctx context.Context, symbol string, days int) ([]market_data.OHLCV, error) {
	end := y.now()
	res, err := y.chart(ctx, symbol, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no quote series for %s", symbol)
	}
	series := res.Indicators.Quote[0]

	bars := make([]market_data.OHLCV, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closeVal := at(series.Close, i)
		if closeVal == nil {
			continue
		}
		bars = append(bars, market_data.OHLCV{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   deref(at(series.Open, i)),
			High:   deref(at(series.High, i)),
			Low:    deref(at(series.Low, i)),
			Close:  *closeVal,
			Volume: deref(at(series.Volume, i)),
		})
	}
	return bars, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, from, to time.Time) (*chartResult, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	var body chartResponse
	if err := y.getJSON(ctx, "chart", endpoint, &body); err != nil {
		return nil, errors.Wrapf(err, "chart %s", symbol)
	}
	if body.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "chart %s: %s", symbol, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "chart %s: empty result", symbol)
	}
	return &body.Chart.Result[0], nil
}

func (y *Yahoo) marketCap(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.baseURL, url.QueryEscape(symbol))
	var body quoteResponse
	if err := y.getJSON(ctx, "quote", endpoint, &body); err != nil {
		return 0, err
	}
	if len(body.QuoteResponse.Result) == 0 {
		return 0, errors.ErrNotFound
	}
	return body.QuoteResponse.Result[0].MarketCap, nil
}

// getJSON performs one rate-limited, retried GET and decodes the body into dest
func (y *Yahoo) getJSON(ctx context.Context, name, endpoint string, dest interface{}) error {
	start := time.Now()
	err := y.retrier.Do(ctx, func(ctx context.Context) error {
		if err := y.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errors.Wrap(err, "failed to create request")
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := y.httpClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "request failed")
		}
		defer resp.Body.Close()

		if err := transport.CheckResponse(providerName, resp); err != nil {
			return err
		}
		return errors.Wrap(json.NewDecoder(resp.Body).Decode(dest), "failed to decode response")
	})
	metrics.RecordProviderCall(providerName, name, time.Since(start), err)
	return err
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
