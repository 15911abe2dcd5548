// Package orchestrator runs the analysis pipeline for one symbol:
// collect, fan out to the technical, risk and sentiment agents, join, synthesize.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
)

// Agent is one analysis branch. It must treat the snapshot as read-only.
type Agent interface {
	Name() string
	Run(ctx context.Context, snap market_data.Snapshot) (analysis.Output, error)
}

// Collector produces the snapshot the branches share
type Collector interface {
	Collect(ctx context.Context, symbol string) (market_data.Snapshot, error)
}

// Stage is the position of a run in the pipeline state machine
type Stage int

const (
	StageCollect Stage = iota
	StageAnalyze
	StageSynthesize
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageCollect:
		return "COLLECT"
	case StageAnalyze:
		return "ANALYZE"
	case StageSynthesize:
		return "SYNTHESIZE"
	case StageDone:
		return "DONE"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	for st := StageCollect; st <= StageFailed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	*s = StageFailed
	return nil
}

// Run statuses
const (
	StatusCompleted      = "completed"
	StatusPartialFailure = "completed_with_partial_failure"
	StatusFailed         = "failed"
	StatusCached         = "cached"
)

// BranchResult is what one agent produced; exactly one of Output and Err is set
type BranchResult struct {
	Agent    string
	Output   analysis.Output
	Err      error
	Duration time.Duration
}

// Rating buckets the overall score
type Rating string

const (
	RatingExcellent Rating = "EXCELLENT"
	RatingGood      Rating = "GOOD"
	RatingFair      Rating = "FAIR"
	RatingPoor      Rating = "POOR"
)

// Score is the weighted blend of the three branches
type Score struct {
	Value     float64 `json:"score"`
	Rating    Rating  `json:"rating"`
	Technical float64 `json:"technical_component"`
	Risk      float64 `json:"risk_component"`
	Sentiment float64 `json:"sentiment_component"`
}

// SnapshotSummary is the part of the snapshot carried into the report
type SnapshotSummary struct {
	CurrentPrice float64                   `json:"current_price"`
	Volume       float64                   `json:"volume"`
	MarketCap    float64                   `json:"market_cap"`
	Horizons     []market_data.HorizonStat `json:"horizons"`
	DataPoints   int                       `json:"data_points"`
	NewsCount    int                       `json:"news_count"`
	Headlines    []string                  `json:"headlines"`
	CollectedAt  time.Time                 `json:"collected_at"`
}

// Result is the synthesized report for one run. Branch outputs are nil when
// the branch failed; the reason is in Errors.
type Result struct {
	RunID           uuid.UUID           `json:"run_id"`
	UserID          uuid.UUID           `json:"user_id"`
	Symbol          string              `json:"symbol"`
	Stage           Stage               `json:"stage"`
	Status          string              `json:"status"`
	Snapshot        SnapshotSummary     `json:"snapshot"`
	Technical       *analysis.Technical `json:"technical,omitempty"`
	Risk            *analysis.Risk      `json:"risk,omitempty"`
	Sentiment       *analysis.Sentiment `json:"sentiment,omitempty"`
	Errors          map[string]string   `json:"errors,omitempty"`
	Recommendation  analysis.Signal     `json:"recommendation"`
	Score           Score               `json:"overall_score"`
	Recommendations []string            `json:"recommendations"`
	Narrative       string              `json:"narrative,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	CompletedAt     time.Time           `json:"completed_at"`
	Cached          bool                `json:"cached"`
}
