// Package alerting holds the periodic jobs that drive the alert engines
package alerting

import (
	"context"
	"time"

	"stockwatch/internal/alerts"
	"stockwatch/internal/workers"
	"stockwatch/pkg/errors"
)

// ThresholdSweeper is satisfied by *alerts.Engine
type ThresholdSweeper interface {
	Sweep(ctx context.Context) (alerts.SweepStats, error)
}

// SmartSweeper is satisfied by *alerts.SmartAnalyzer
type SmartSweeper interface {
	Sweep(ctx context.Context) (alerts.SmartStats, error)
}

// SweepWorker runs the cumulative threshold sweep
type SweepWorker struct {
	*workers.BaseWorker
	engine ThresholdSweeper
}

func NewSweepWorker(engine ThresholdSweeper, interval time.Duration, enabled bool) *SweepWorker {
	return &SweepWorker{
		BaseWorker: workers.NewBaseWorker("alert_sweep", interval, enabled),
		engine:     engine,
	}
}

// Run sweeps once. A sweep still running elsewhere is skipped, not failed.
func (w *SweepWorker) Run(ctx context.Context) error {
	stats, err := w.engine.Sweep(ctx)
	if errors.Is(err, errors.ErrSweepInProgress) {
		w.Log().Infow("Previous sweep still running, skipping tick")
		return nil
	}
	if err != nil {
		return err
	}

	w.Log().Infow("Alert sweep finished",
		"checked", stats.Checked,
		"triggered", stats.Triggered,
		"rearmed", stats.Rearmed,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return nil
}

// SmartSweepWorker runs the pattern-based smart alert sweep
type SmartSweepWorker struct {
	*workers.BaseWorker
	analyzer SmartSweeper
}

func NewSmartSweepWorker(analyzer SmartSweeper, interval time.Duration, enabled bool) *SmartSweepWorker {
	return &SmartSweepWorker{
		BaseWorker: workers.NewBaseWorker("smart_alert_sweep", interval, enabled),
		analyzer:   analyzer,
	}
}

func (w *SmartSweepWorker) Run(ctx context.Context) error {
	stats, err := w.analyzer.Sweep(ctx)
	if errors.Is(err, errors.ErrSweepInProgress) {
		w.Log().Infow("Previous smart sweep still running, skipping tick")
		return nil
	}
	if err != nil {
		return err
	}

	w.Log().Infow("Smart alert sweep finished",
		"checked", stats.Checked,
		"triggered", stats.Triggered,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return nil
}
