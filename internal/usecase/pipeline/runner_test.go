package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trendpost/internal/domain/entity"
)

type runnerFixture struct {
	trends     *stubTrendSource
	keywords   *stubKeywordRepo
	metrics    *stubMetricRepo
	news       *stubNewsSource
	videos     *stubVideoSource
	sources    *stubSourceRepo
	posts      *stubPostRepo
	summarizer *stubSummarizer
	fetcher    *stubContentFetcher
	cache      *stubCardCache
	pool       *inlinePool
	runner     *Runner
}

func newRunnerFixture(hooks RunHooks) *runnerFixture {
	f := &runnerFixture{
		trends:     &stubTrendSource{},
		keywords:   newStubKeywordRepo(),
		metrics:    newStubMetricRepo(),
		news:       newStubNewsSource(),
		videos:     newStubVideoSource(),
		sources:    newStubSourceRepo(),
		posts:      newStubPostRepo(),
		summarizer: &stubSummarizer{},
		fetcher:    &stubContentFetcher{},
		cache:      &stubCardCache{},
		pool:       &inlinePool{},
	}

	cfg := DefaultConfig()
	logger := discardLogger()

	f.runner = NewRunner(
		NewTrendIngestor(f.trends, f.keywords, f.metrics, logger),
		NewNoveltyEvaluator(f.metrics, cfg.NoveltyCutoff, logger),
		NewSourceSearchOrchestrator(f.news, f.videos, f.sources, &stubMetadataFetcher{}, f.pool,
			cfg.SourceSearchLimit, cfg.SearchParallelism, logger),
		NewPostGenerator(f.sources, f.posts, f.summarizer, f.fetcher,
			cfg.PostSourceLimit, cfg.SummarizeParallelism, logger),
		NewCacheWarmer(f.cache, logger),
		hooks,
		logger,
	)
	return f
}

func TestRunner_FullCycle(t *testing.T) {
	f := newRunnerFixture(RunHooks{})

	// Ten first-sighting keywords, each with five articles and three videos.
	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("keyword %d", i)
		f.trends.entries = append(f.trends.entries, TrendEntry{Text: text, Volume: int64(1000 + i)})

		var articles []NewsItem
		for j := 0; j < 5; j++ {
			articles = append(articles, NewsItem{
				Title:       fmt.Sprintf("article %d-%d", i, j),
				Link:        fmt.Sprintf("https://news.example.com/%d/%d", i, j),
				Description: "a reasonably sized description of what happened in this story",
				PublishedAt: publishedAt(j),
			})
		}
		f.news.results[text] = articles

		var clips []VideoItem
		for j := 0; j < 3; j++ {
			clips = append(clips, VideoItem{
				VideoID:      fmt.Sprintf("vid-%d-%d", i, j),
				Title:        fmt.Sprintf("clip %d-%d", i, j),
				ThumbnailURL: fmt.Sprintf("https://i.ytimg.com/vid-%d-%d.jpg", i, j),
				PublishedAt:  publishedAt(10 + j),
			})
		}
		f.videos.results[text] = clips
	}

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Status != RunSuccess {
		t.Errorf("Status = %q, want success (failures: %v)", summary.Status, summary.StageFailures)
	}
	if summary.Keywords != 10 || summary.FirstSighting != 10 {
		t.Errorf("Keywords = %d, FirstSighting = %d, want 10 and 10", summary.Keywords, summary.FirstSighting)
	}
	if summary.SourcesInserted != 80 {
		t.Errorf("SourcesInserted = %d, want 80", summary.SourcesInserted)
	}
	if summary.LinksInserted != 80 {
		t.Errorf("LinksInserted = %d, want 80", summary.LinksInserted)
	}
	if summary.PostsCreated != 10 || summary.PostsFailed != 0 {
		t.Errorf("PostsCreated = %d, PostsFailed = %d, want 10 and 0", summary.PostsCreated, summary.PostsFailed)
	}
	if summary.CacheWarmed != 10 {
		t.Errorf("CacheWarmed = %d, want 10", summary.CacheWarmed)
	}
	if summary.LowVariation != 0 || summary.NoPostNeeded {
		t.Errorf("LowVariation = %d, NoPostNeeded = %v, want 0 and false", summary.LowVariation, summary.NoPostNeeded)
	}
	if len(f.posts.posts) != 10 {
		t.Errorf("persisted posts = %d, want 10", len(f.posts.posts))
	}
}

func TestRunner_NoPostableKeywordsShortCircuits(t *testing.T) {
	f := newRunnerFixture(RunHooks{})
	f.trends.entries = []TrendEntry{{Text: "flat keyword", Volume: 300}}

	// The keyword already has a flat previous bucket so the evaluator drops
	// it below the cutoff.
	kw, err := f.keywords.UpsertByText(context.Background(), "flat keyword")
	if err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}
	f.metrics.seedMetric(&entity.KeywordMetricHourly{
		KeywordID: kw.ID,
		BucketAt:  entity.HourBucket(time.Now()).Add(-time.Hour),
		Platform:  entity.PlatformGoogleTrends,
		Volume:    300,
	})

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !summary.NoPostNeeded {
		t.Error("NoPostNeeded = false, want true")
	}
	if summary.Status != RunSuccess {
		t.Errorf("Status = %q, want success", summary.Status)
	}
	if f.news.calls != 0 || f.videos.calls != 0 {
		t.Errorf("search ran despite empty postable set: news %d, video %d calls", f.news.calls, f.videos.calls)
	}
	if len(f.summarizer.prompts) != 0 {
		t.Error("summarizer called despite empty postable set")
	}
	if len(f.cache.cards) != 0 {
		t.Error("cache warmed despite empty postable set")
	}
}

func TestRunner_FatalIngestProducesFailureSummary(t *testing.T) {
	f := newRunnerFixture(RunHooks{})
	f.trends.err = errors.New("trends api unreachable")

	summary, err := f.runner.Run(context.Background())
	if err == nil {
		t.Fatal("Run with broken trend source returned nil error")
	}
	if !IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if summary == nil {
		t.Fatal("aborted run must still produce a summary")
	}
	if summary.Status != RunFailure {
		t.Errorf("Status = %q, want failure", summary.Status)
	}
	if len(summary.StageFailures) == 0 {
		t.Error("failure summary carries no stage failure note")
	}
}

func TestRunner_IsolatedFailuresYieldPartialStatus(t *testing.T) {
	f := newRunnerFixture(RunHooks{})
	f.trends.entries = []TrendEntry{
		{Text: "good keyword", Volume: 1000},
		{Text: "bad keyword", Volume: 1000},
	}
	f.news.results["good keyword"] = []NewsItem{
		{Title: "story", Link: "https://example.com/good", Description: "desc", PublishedAt: publishedAt(0)},
	}
	f.news.errs["bad keyword"] = errors.New("news api down")

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Status != RunPartial {
		t.Errorf("Status = %q, want partial", summary.Status)
	}
	// The good keyword still produced its post.
	if summary.PostsCreated != 1 {
		t.Errorf("PostsCreated = %d, want 1", summary.PostsCreated)
	}
	if len(summary.StageFailures) == 0 {
		t.Error("partial summary carries no stage failure notes")
	}
}

func TestRunner_OverlappingTriggerIsSkipped(t *testing.T) {
	gate := &gatedTrendSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newRunnerFixture(RunHooks{})
	logger := discardLogger()
	runner := NewRunner(
		NewTrendIngestor(gate, f.keywords, f.metrics, logger),
		NewNoveltyEvaluator(f.metrics, 10, logger),
		NewSourceSearchOrchestrator(f.news, f.videos, f.sources, &stubMetadataFetcher{}, f.pool, 10, 4, logger),
		NewPostGenerator(f.sources, f.posts, f.summarizer, f.fetcher, 5, 2, logger),
		NewCacheWarmer(f.cache, logger),
		RunHooks{},
		logger,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = runner.Run(context.Background())
	}()

	<-gate.entered
	if _, err := runner.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping Run error = %v, want ErrRunInProgress", err)
	}

	close(gate.release)
	wg.Wait()

	// With the first run finished a new trigger is accepted again.
	gate.entered = make(chan struct{}, 1)
	gate.release = make(chan struct{})
	close(gate.release)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Errorf("Run after completion returned error: %v", err)
	}
}

func TestRunner_StageHooksObserveEveryStage(t *testing.T) {
	var mu sync.Mutex
	var before, after []string

	hooks := RunHooks{
		BeforeStage: func(ctx context.Context, stage string) context.Context {
			mu.Lock()
			defer mu.Unlock()
			before = append(before, stage)
			return ctx
		},
		AfterStage: func(ctx context.Context, stage string, d time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			after = append(after, stage)
		},
	}

	f := newRunnerFixture(hooks)
	f.trends.entries = []TrendEntry{{Text: "kw", Volume: 1000}}
	f.news.results["kw"] = []NewsItem{
		{Title: "story", Link: "https://example.com/a", Description: "desc", PublishedAt: publishedAt(0)},
	}

	if _, err := f.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{StageIngest, StageEvaluate, StageSearch, StageGenerate, StageWarm}
	if diff := cmp.Diff(want, before); diff != "" {
		t.Errorf("BeforeStage order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Errorf("AfterStage order mismatch (-want +got):\n%s", diff)
	}
}

// gatedTrendSource blocks inside FetchTrending until released so tests can
// hold a run in flight.
type gatedTrendSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTrendSource) FetchTrending(ctx context.Context) ([]TrendEntry, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return nil, nil
}
