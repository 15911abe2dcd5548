package bootstrap

import (
	"stockwatch/internal/workers"
	"stockwatch/internal/workers/alerting"
	"stockwatch/internal/workers/marketdata"
)

// provideWorkers registers every periodic job. A zero interval disables a job.
func provideWorkers(c *Container) *workers.Scheduler {
	cfg := c.Config.Workers
	scheduler := workers.NewScheduler()

	scheduler.RegisterWorker(alerting.NewSweepWorker(c.Business.Engine, cfg.AlertSweepInterval, true))
	scheduler.RegisterWorker(alerting.NewSmartSweepWorker(c.Business.Smart, cfg.SmartSweepInterval, true))
	scheduler.RegisterWorker(alerting.NewNotifyWorker(c.Business.Dispatcher, cfg.NotifyInterval, true))
	scheduler.RegisterWorker(alerting.NewExpiryWorker(c.Business.Alerts, c.Config.Alerts.ExpireAfter, cfg.ExpiryInterval, true))
	scheduler.RegisterWorker(marketdata.NewRefreshWorker(
		c.Repos.Positions,
		c.Business.Collector,
		cfg.RefreshMaxConcurrent,
		cfg.RefreshInterval,
		cfg.RefreshEnabled,
	))

	c.Log.Infow("Workers configured", "count", len(scheduler.GetWorkers()))
	return scheduler
}
