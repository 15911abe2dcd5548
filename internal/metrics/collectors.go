package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"stockwatch/pkg/logger"
)

// StateCollector reports alert and tracking gauges straight from Postgres at scrape time
type StateCollector struct {
	log *logger.Logger
	db  *sqlx.DB

	alertsByStatus  *prometheus.Desc
	activePositions *prometheus.Desc
	trackedStocks   *prometheus.Desc
}

func NewStateCollector(log *logger.Logger, db *sqlx.DB) *StateCollector {
	return &StateCollector{
		log: log,
		db:  db,
		alertsByStatus: prometheus.NewDesc(
			"stockwatch_alerts",
			"Alerts by status",
			[]string{"status"}, nil,
		),
		activePositions: prometheus.NewDesc(
			"stockwatch_tracked_positions_active",
			"Active tracked positions",
			nil, nil,
		),
		trackedStocks: prometheus.NewDesc(
			"stockwatch_tracked_stocks",
			"Distinct stocks with at least one active position",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.alertsByStatus
	ch <- c.activePositions
	ch <- c.trackedStocks
}

// Collect implements prometheus.Collector
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectAlerts(ctx, ch)
	c.collectPositions(ctx, ch)
}

func (c *StateCollector) collectAlerts(ctx context.Context, ch chan<- prometheus.Metric) {
	type statusCount struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var rows []statusCount
	err := c.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count
		FROM alerts
		GROUP BY status
	`)
	if err != nil {
		c.log.Warnw("failed to collect alert counts", "error", err)
		return
	}

	for _, r := range rows {
		ch <- prometheus.MustNewConstMetric(c.alertsByStatus, prometheus.GaugeValue, float64(r.Count), r.Status)
	}
}

func (c *StateCollector) collectPositions(ctx context.Context, ch chan<- prometheus.Metric) {
	var counts struct {
		Positions int `db:"positions"`
		Stocks    int `db:"stocks"`
	}
	err := c.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS positions, COUNT(DISTINCT stock_id) AS stocks
		FROM tracked_positions
		WHERE active = TRUE
	`)
	if err != nil {
		c.log.Warnw("failed to collect position counts", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.activePositions, prometheus.GaugeValue, float64(counts.Positions))
	ch <- prometheus.MustNewConstMetric(c.trackedStocks, prometheus.GaugeValue, float64(counts.Stocks))
}
