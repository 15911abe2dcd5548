package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"stockwatch/internal/adapters/ai"
	"stockwatch/internal/agents/collection"
	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/internal/tracing"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

// Config tunes a pipeline run
type Config struct {
	// Timeout bounds a whole run including narration
	Timeout time.Duration
	// CacheTTL is how long a synthesized result is served from the store; zero disables caching
	CacheTTL time.Duration
}

// Orchestrator wires a collector and the analysis branches into one pipeline
type Orchestrator struct {
	collector Collector
	agents    []Agent
	narrator  ai.Narrator
	cache     kvstore.Store
	cfg       Config
	now       func() time.Time
	log       *logger.Logger
}

type Option func(*Orchestrator)

// WithNarrator requests narrative text after synthesis
func WithNarrator(n ai.Narrator) Option {
	return func(o *Orchestrator) { o.narrator = n }
}

// WithCache serves repeated runs for the same user and symbol from store
func WithCache(store kvstore.Store) Option {
	return func(o *Orchestrator) { o.cache = store }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. agents run concurrently in the analyze stage.
func New(collector Collector, agents []Agent, cfg Config, opts ...Option) *Orchestrator {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	o := &Orchestrator{
		collector: collector,
		agents:    agents,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Get().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CacheKey is the store key for a user's latest result on symbol
func CacheKey(userID uuid.UUID, symbol string) string {
	return fmt.Sprintf("pipeline:%s:%s", userID, strings.ToUpper(symbol))
}

// Run executes COLLECT, then every agent in parallel, then SYNTHESIZE.
// A collection failure aborts the run with ErrPipelineFailure; branch failures
// only downgrade the status.
func (o *Orchestrator) Run(ctx context.Context, userID uuid.UUID, symbol string) (*Result, error) {
	symbol, err := collection.SanitizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if cached, ok := o.cached(ctx, userID, symbol); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "pipeline.run",
		attribute.String("symbol", symbol),
		attribute.String("user_id", userID.String()),
	)

	started := o.now()
	res := &Result{
		RunID:     uuid.New(),
		UserID:    userID,
		Symbol:    symbol,
		Stage:     StageCollect,
		StartedAt: started,
	}
	log := o.log.With("run_id", res.RunID, "symbol", symbol)

	snap, err := o.collect(ctx, symbol)
	if err != nil {
		res.Stage = StageFailed
		res.Status = StatusFailed
		res.CompletedAt = o.now()
		metrics.RecordPipelineRun(StatusFailed, time.Since(started))
		err = errors.Join(errors.ErrPipelineFailure, err)
		tracing.End(span, err)
		log.Warnw("Pipeline aborted in collection", "error", err)
		return res, err
	}

	res.Stage = StageAnalyze
	branches := o.analyze(ctx, snap)

	res.Stage = StageSynthesize
	o.synthesize(ctx, res, snap, branches)

	if o.narrator != nil {
		o.narrate(ctx, res, snap)
	}

	res.Stage = StageDone
	res.CompletedAt = o.now()
	metrics.RecordPipelineRun(res.Status, time.Since(started))
	tracing.End(span, nil)

	log.Infow("Pipeline completed",
		"status", res.Status,
		"recommendation", res.Recommendation,
		"score", res.Score.Value,
		"duration", time.Since(started),
	)

	o.store(ctx, res)
	return res, nil
}

func (o *Orchestrator) collect(ctx context.Context, symbol string) (market_data.Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.collect")
	snap, err := o.collector.Collect(ctx, symbol)
	tracing.End(span, err)
	return snap, err
}

// analyze runs every agent against snap. Each goroutine writes only its own
// slot and returns nil, so one failing branch never cancels the others.
func (o *Orchestrator) analyze(ctx context.Context, snap market_data.Snapshot) []BranchResult {
	ctx, span := tracing.StartSpan(ctx, "pipeline.analyze", attribute.Int("branches", len(o.agents)))
	defer span.End()

	results := make([]BranchResult, len(o.agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, ag := range o.agents {
		g.Go(func() error {
			results[i] = o.runBranch(gctx, ag, snap)
			return nil
		})
	}
	_ = g.Wait()

	for _, br := range results {
		if br.Err != nil {
			metrics.RecordBranchFailure(br.Agent)
			o.log.Warnw("Analysis branch failed", "branch", br.Agent, "symbol", snap.Symbol, "error", br.Err)
		}
	}
	return results
}

func (o *Orchestrator) runBranch(ctx context.Context, ag Agent, snap market_data.Snapshot) (br BranchResult) {
	br.Agent = ag.Name()
	ctx, span := tracing.StartSpan(ctx, "pipeline.branch."+br.Agent)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("Analysis branch panicked", "branch", br.Agent, "panic", r, "stack", string(debug.Stack()))
			br.Output = nil
			br.Err = errors.Wrapf(errors.ErrBranchFailure, "%s panicked: %v", br.Agent, r)
		}
		br.Duration = time.Since(start)
		tracing.End(span, br.Err)
	}()

	out, err := ag.Run(ctx, snap)
	switch {
	case err != nil:
		br.Err = errors.Join(errors.ErrBranchFailure, err)
	case out == nil:
		br.Err = errors.Wrapf(errors.ErrBranchFailure, "%s returned no output", br.Agent)
	default:
		br.Output = out
	}
	return br
}

func (o *Orchestrator) narrate(ctx context.Context, res *Result, snap market_data.Snapshot) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.narrate")
	text, err := o.narrator.GenerateNarrative(ctx, NarrativeContext(res, snap))
	tracing.End(span, err)
	if err != nil {
		o.log.Warnw("Narrative generation failed", "symbol", res.Symbol, "error", err)
		return
	}
	res.Narrative = text
}

func (o *Orchestrator) cached(ctx context.Context, userID uuid.UUID, symbol string) (*Result, bool) {
	if o.cache == nil || o.cfg.CacheTTL <= 0 {
		return nil, false
	}
	var res Result
	found, err := o.cache.Get(ctx, CacheKey(userID, symbol), &res)
	if err != nil {
		o.log.Warnw("Pipeline cache read failed", "symbol", symbol, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	res.Cached = true
	metrics.RecordPipelineRun(StatusCached, 0)
	return &res, true
}

func (o *Orchestrator) store(ctx context.Context, res *Result) {
	if o.cache == nil || o.cfg.CacheTTL <= 0 {
		return
	}
	if err := o.cache.Set(ctx, CacheKey(res.UserID, res.Symbol), res, o.cfg.CacheTTL); err != nil {
		o.log.Warnw("Pipeline cache write failed", "symbol", res.Symbol, "error", err)
	}
}

// Invalidate drops the cached result so the next Run recomputes
func (o *Orchestrator) Invalidate(ctx context.Context, userID uuid.UUID, symbol string) error {
	if o.cache == nil {
		return nil
	}
	return o.cache.Delete(ctx, CacheKey(userID, symbol))
}

// branchOutput returns the first successful output of type T
func branchOutput[T analysis.Output](branches []BranchResult) (T, bool) {
	var zero T
	for _, br := range branches {
		if br.Err != nil {
			continue
		}
		if out, ok := br.Output.(T); ok {
			return out, true
		}
	}
	return zero, false
}
