package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"trendpost/internal/domain/entity"
)

// Stage names in execution order.
const (
	StageIngest   = "ingest"
	StageEvaluate = "evaluate"
	StageSearch   = "search"
	StageGenerate = "generate"
	StageWarm     = "warm"
)

// RunStatus classifies the outcome of one pipeline run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailure RunStatus = "failure"
)

// RunSummary is the report produced by every run, including aborted ones.
type RunSummary struct {
	Status    RunStatus
	StartedAt time.Time
	Duration  time.Duration
	Bucket    time.Time

	Keywords        int
	KeywordsSkipped int
	FirstSighting   int
	LowVariation    int
	EvalFailed      int
	SourcesInserted int
	LinksInserted   int
	PostsCreated    int
	PostsFailed     int
	CacheWarmed     int
	CacheFailed     int

	// NoPostNeeded is set when no keyword survived evaluation and the
	// search, generate, and warm stages were skipped outright.
	NoPostNeeded bool

	// StageFailures lists human-readable per-stage failure notes for
	// partial and failed runs.
	StageFailures []string
}

// RunHooks lets the caller observe stage boundaries, typically for metrics
// and tracing. Either hook may be nil.
type RunHooks struct {
	BeforeStage func(ctx context.Context, stage string) context.Context
	AfterStage  func(ctx context.Context, stage string, duration time.Duration, err error)
}

// Runner sequences the pipeline stages for one hour bucket and guarantees a
// run summary regardless of outcome. Concurrent triggers are skipped, not
// queued.
type Runner struct {
	ingestor  *TrendIngestor
	evaluator *NoveltyEvaluator
	search    *SourceSearchOrchestrator
	generator *PostGenerator
	warmer    *CacheWarmer

	hooks  RunHooks
	logger *slog.Logger

	// now is replaceable for tests.
	now func() time.Time

	running atomic.Bool
}

// NewRunner creates a Runner over the five pipeline stages.
func NewRunner(
	ingestor *TrendIngestor,
	evaluator *NoveltyEvaluator,
	search *SourceSearchOrchestrator,
	generator *PostGenerator,
	warmer *CacheWarmer,
	hooks RunHooks,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		ingestor:  ingestor,
		evaluator: evaluator,
		search:    search,
		generator: generator,
		warmer:    warmer,
		hooks:     hooks,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one pipeline cycle for the current hour bucket. It returns
// ErrRunInProgress without a summary when a run is already in flight;
// otherwise it always returns a summary, even when the run aborts on a
// fatal error.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("pipeline trigger skipped, run already in progress")
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	started := r.now()
	bucket := entity.HourBucket(started)

	summary := &RunSummary{
		StartedAt: started,
		Bucket:    bucket,
	}

	r.logger.Info("pipeline run started", slog.Time("bucket_at", bucket))

	ingested, err := runStage(r, ctx, StageIngest, func(stageCtx context.Context) (*IngestResult, error) {
		return r.ingestor.Ingest(stageCtx, bucket)
	})
	if err != nil {
		return r.finish(summary, err)
	}
	summary.Keywords = len(ingested.Keywords)
	summary.KeywordsSkipped = ingested.Skipped

	evaluated, err := runStage(r, ctx, StageEvaluate, func(stageCtx context.Context) (*EvalResult, error) {
		return r.evaluator.Evaluate(stageCtx, ingested)
	})
	if err != nil {
		return r.finish(summary, err)
	}
	summary.FirstSighting = evaluated.FirstSighting
	summary.LowVariation = evaluated.LowVariation
	summary.EvalFailed = evaluated.Failed

	if len(evaluated.Postable) == 0 {
		summary.NoPostNeeded = true
		r.logger.Info("no postable keywords, downstream stages skipped",
			slog.Time("bucket_at", bucket))
		return r.finish(summary, nil)
	}

	searched, err := runStage(r, ctx, StageSearch, func(stageCtx context.Context) (*SearchResult, error) {
		return r.search.Search(stageCtx, evaluated.Postable)
	})
	if err != nil {
		return r.finish(summary, err)
	}
	summary.SourcesInserted = searched.SourcesInserted
	summary.LinksInserted = searched.LinksInserted
	if searched.NewsFailed > 0 {
		summary.addFailure(StageSearch, "news search failed for %d keyword(s)", searched.NewsFailed)
	}
	if searched.VideoFailed > 0 {
		summary.addFailure(StageSearch, "video search failed for %d keyword(s)", searched.VideoFailed)
	}

	generated, err := runStage(r, ctx, StageGenerate, func(stageCtx context.Context) (*GenerateResult, error) {
		return r.generator.Generate(stageCtx, evaluated.Postable, bucket)
	})
	if err != nil {
		return r.finish(summary, err)
	}
	summary.PostsCreated = len(generated.Posts)
	summary.PostsFailed = generated.Failed
	if generated.Failed > 0 {
		summary.addFailure(StageGenerate, "post generation failed for %d keyword(s)", generated.Failed)
	}

	warmed, err := runStage(r, ctx, StageWarm, func(stageCtx context.Context) (*WarmResult, error) {
		return r.warmer.Warm(stageCtx, generated.Posts), nil
	})
	if err != nil {
		return r.finish(summary, err)
	}
	summary.CacheWarmed = warmed.Entries
	summary.CacheFailed = warmed.Failed
	if warmed.Failed > 0 {
		summary.addFailure(StageWarm, "cache warmup failed for %d post(s)", warmed.Failed)
	}

	return r.finish(summary, nil)
}

// runStage executes one stage with the before/after hooks around it.
func runStage[T any](r *Runner, ctx context.Context, stage string, fn func(context.Context) (T, error)) (T, error) {
	stageCtx := ctx
	if r.hooks.BeforeStage != nil {
		stageCtx = r.hooks.BeforeStage(ctx, stage)
	}
	startedAt := r.now()

	out, err := fn(stageCtx)

	if r.hooks.AfterStage != nil {
		r.hooks.AfterStage(stageCtx, stage, r.now().Sub(startedAt), err)
	}
	return out, err
}

// finish derives the final run status and logs the summary.
func (r *Runner) finish(summary *RunSummary, err error) (*RunSummary, error) {
	summary.Duration = r.now().Sub(summary.StartedAt)

	switch {
	case err != nil:
		summary.Status = RunFailure
		summary.StageFailures = append(summary.StageFailures, err.Error())
	case len(summary.StageFailures) > 0 || summary.EvalFailed > 0 || summary.KeywordsSkipped > 0:
		summary.Status = RunPartial
	default:
		summary.Status = RunSuccess
	}

	r.logger.Info("pipeline run finished",
		slog.String("status", string(summary.Status)),
		slog.Time("bucket_at", summary.Bucket),
		slog.Duration("duration", summary.Duration),
		slog.Int("keywords", summary.Keywords),
		slog.Int("posts_created", summary.PostsCreated),
		slog.Bool("no_post_needed", summary.NoPostNeeded))

	return summary, err
}

func (s *RunSummary) addFailure(stage, format string, args ...any) {
	s.StageFailures = append(s.StageFailures, stage+": "+fmt.Sprintf(format, args...))
}
