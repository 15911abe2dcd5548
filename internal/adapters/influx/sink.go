// Package influx writes collected daily bars to InfluxDB for dashboards.
package influx

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
)

const measurement = "stock_prices"

// Sink implements market_data.PriceSink with a blocking write API
type Sink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

var _ market_data.PriceSink = (*Sink)(nil)

// NewSink connects and checks server health
func NewSink(ctx context.Context, cfg config.InfluxConfig) (*Sink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "influx health check")
	}
	if health.Status != "pass" {
		client.Close()
		return nil, errors.Wrapf(errors.ErrUnavailable, "influx status %s", health.Status)
	}

	return &Sink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// WriteBars writes one point per bar, tagged by symbol and timestamped at the bar date
func (s *Sink) WriteBars(ctx context.Context, bars []market_data.OHLCV) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	err := s.writer.WritePoint(ctx, Points(bars)...)
	metrics.RecordDBQuery("influx", "write_bars", time.Since(start), err)
	return errors.Wrap(err, "write bars")
}

// Points converts bars to line-protocol points
func Points(bars []market_data.OHLCV) []*write.Point {
	points := make([]*write.Point, 0, len(bars))
	for _, b := range bars {
		points = append(points, influxdb2.NewPoint(
			measurement,
			map[string]string{"symbol": b.Symbol},
			map[string]interface{}{
				"open":   b.Open,
				"high":   b.High,
				"low":    b.Low,
				"close":  b.Close,
				"volume": b.Volume,
			},
			b.Date,
		))
	}
	return points
}

func (s *Sink) Close() {
	s.client.Close()
}
