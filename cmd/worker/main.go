package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	pgRepo "trendpost/internal/infra/adapter/persistence/postgres"
	"trendpost/internal/infra/cache"
	"trendpost/internal/infra/db"
	"trendpost/internal/infra/fetcher"
	"trendpost/internal/infra/newsapi"
	"trendpost/internal/infra/notifier"
	"trendpost/internal/infra/summarizer"
	"trendpost/internal/infra/trends"
	"trendpost/internal/infra/videoapi"
	workerPkg "trendpost/internal/infra/worker"
	"trendpost/internal/observability/logging"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/observability/tracing"
	"trendpost/internal/pkg/config"
	"trendpost/internal/usecase/pipeline"
)

func main() {
	_ = godotenv.Load()

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database, err := db.Open()
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := db.MigrateUp(database); err != nil {
		logger.Error("database migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerCfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerCfg.CronSchedule),
		slog.String("timezone", workerCfg.Timezone),
		slog.Duration("run_timeout", workerCfg.RunTimeout),
		slog.Int("health_port", workerCfg.HealthPort))

	tuning, err := pipeline.LoadConfig()
	if err != nil {
		logger.Error("failed to load pipeline tuning", slog.Any("error", err))
		os.Exit(1)
	}

	runNotifier := buildNotifier(logger)

	cardCache, err := buildCardCache(ctx, logger)
	if err != nil {
		logger.Error("failed to connect to cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if cardCache != nil {
			_ = cardCache.Close()
		}
	}()

	pool := workerPkg.NewPool(workerCfg.EnrichWorkers, 4*workerCfg.EnrichWorkers, logger)
	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	startMetricsServer(ctx, logger)
	go watchDBStats(ctx, database)

	runner, err := buildRunner(logger, database, cardCache, pool, tuning, workerCfg, workerMetrics)
	if err != nil {
		logger.Error("failed to assemble pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(true)

	runOnce := func() {
		runCtx, cancel := context.WithTimeout(ctx, workerCfg.RunTimeout)
		defer cancel()

		runID := uuid.NewString()
		runCtx = logging.ContextWithRunID(runCtx, runID)
		runCtx = tracing.StartRun(runCtx, runID)
		runLogger := logging.WithRunID(runCtx, logger)

		summary, err := runner.Run(runCtx)
		tracing.EndRun(runCtx, err)

		if errors.Is(err, pipeline.ErrRunInProgress) {
			workerMetrics.RecordRun("skipped")
			return
		}
		if summary == nil {
			runLogger.Error("pipeline run produced no summary", slog.Any("error", err))
			workerMetrics.RecordRun("failure")
			return
		}

		recordRunOutcome(workerMetrics, summary)
		healthServer.SetLastRun(workerPkg.LastRunStatus{
			Status:       string(summary.Status),
			StartedAt:    summary.StartedAt,
			Duration:     summary.Duration.String(),
			Keywords:     summary.Keywords,
			PostsCreated: summary.PostsCreated,
		})

		report := &notifier.RunReport{
			Status:            string(summary.Status),
			StartedAt:         summary.StartedAt,
			Duration:          summary.Duration,
			Keywords:          summary.Keywords,
			NewKeywords:       summary.FirstSighting,
			SourcesDiscovered: summary.SourcesInserted,
			PostsCreated:      summary.PostsCreated,
			StageFailures:     summary.StageFailures,
		}
		if err := runNotifier.NotifyRunReport(runCtx, report); err != nil {
			runLogger.Warn("run report notification failed", slog.Any("error", err))
		}
	}

	location, err := time.LoadLocation(workerCfg.Timezone)
	if err != nil {
		logger.Error("invalid worker timezone", slog.String("timezone", workerCfg.Timezone), slog.Any("error", err))
		os.Exit(1)
	}
	scheduler := cron.New(cron.WithLocation(location))
	if _, err := scheduler.AddFunc(workerCfg.CronSchedule, runOnce); err != nil {
		logger.Error("invalid cron schedule", slog.String("schedule", workerCfg.CronSchedule), slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("pipeline worker started",
		slog.String("schedule", workerCfg.CronSchedule),
		slog.String("timezone", workerCfg.Timezone))

	if workerCfg.RunOnStart {
		go runOnce()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(workerCfg.RunTimeout):
		logger.Warn("in-flight run did not finish before shutdown deadline")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Shutdown(drainCtx); err != nil {
		logger.Warn("background pool drain incomplete", slog.Any("error", err))
	}
	logger.Info("pipeline worker stopped", slog.Int64("enrichment_tasks_dropped", pool.Dropped()))
}

// buildRunner wires the five pipeline stages to the infra clients.
func buildRunner(
	logger *slog.Logger,
	database *sql.DB,
	cardCache *cache.PostCardCache,
	pool *workerPkg.Pool,
	tuning pipeline.Config,
	workerCfg *workerPkg.WorkerConfig,
	workerMetrics *workerPkg.WorkerMetrics,
) (*pipeline.Runner, error) {
	keywordRepo := pgRepo.NewKeywordRepo(database)
	metricRepo := pgRepo.NewMetricRepo(database)
	sourceRepo := pgRepo.NewSourceRepo(database)
	postRepo := pgRepo.NewPostRepo(database)

	httpClient := newAPIHTTPClient()

	trendCfg, err := trends.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("buildRunner: %w", err)
	}
	trendSource := &trendSourceAdapter{client: trends.NewClient(httpClient, trendCfg)}

	newsSource := &newsSourceAdapter{client: newsapi.NewClient(httpClient, newsapi.LoadConfigFromEnv())}

	videoCfg, err := videoapi.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("buildRunner: %w", err)
	}
	videoSource := &videoSourceAdapter{client: videoapi.NewClient(httpClient, videoCfg)}

	sum, err := buildSummarizer(logger)
	if err != nil {
		return nil, fmt.Errorf("buildRunner: %w", err)
	}

	pageCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid page fetch configuration, page fetching disabled", slog.Any("error", err))
		pageCfg = fetcher.DefaultConfig()
		pageCfg.Enabled = false
	}
	contentFetcher, metadata := buildPageFetchers(pageCfg)

	hooks := pipeline.RunHooks{
		BeforeStage: tracing.StartStage,
		AfterStage: func(ctx context.Context, stage string, duration time.Duration, err error) {
			workerMetrics.RecordStageDuration(stage, duration.Seconds())
			tracing.EndStage(ctx, err)
		},
	}

	return pipeline.NewRunner(
		pipeline.NewTrendIngestor(trendSource, keywordRepo, metricRepo, logger),
		pipeline.NewNoveltyEvaluator(metricRepo, tuning.NoveltyCutoff, logger),
		pipeline.NewSourceSearchOrchestrator(newsSource, videoSource, sourceRepo, metadata, pool,
			tuning.SourceSearchLimit, workerCfg.SearchParallelism, logger),
		pipeline.NewPostGenerator(sourceRepo, postRepo, sum, contentFetcher,
			tuning.PostSourceLimit, workerCfg.SummarizeParallelism, logger),
		pipeline.NewCacheWarmer(&cardCacheAdapter{impl: cardCache}, logger),
		hooks,
		logger,
	), nil
}

// buildSummarizer picks the provider from SUMMARIZER_TYPE.
func buildSummarizer(logger *slog.Logger) (pipeline.Summarizer, error) {
	providerType := config.Env("SUMMARIZER_TYPE", "claude")

	switch providerType {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
		}
		logger.Info("using Claude for summarization")
		return &summarizerAdapter{impl: summarizer.NewClaude(apiKey)}, nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
		}
		impl, err := summarizer.NewOpenAI(apiKey)
		if err != nil {
			return nil, fmt.Errorf("buildSummarizer: %w", err)
		}
		logger.Info("using OpenAI for summarization")
		return &summarizerAdapter{impl: impl}, nil
	case "noop":
		logger.Warn("using no-op summarizer, posts will carry raw snippets")
		return &summarizerAdapter{impl: summarizer.NewNoOp()}, nil
	default:
		return nil, fmt.Errorf("invalid SUMMARIZER_TYPE %q, expected claude, openai, or noop", providerType)
	}
}

// buildNotifier assembles the run-report notifier from environment
// configuration. Disabled or misconfigured channels fall back to no-op.
func buildNotifier(logger *slog.Logger) notifier.Notifier {
	if cfg := loadDiscordConfig(logger); cfg.Enabled {
		if os.Getenv("SLACK_ENABLED") == "true" {
			logger.Warn("both Discord and Slack notifications enabled, using Discord")
		}
		logger.Info("run reports will be sent to Discord")
		return notifier.NewDiscordNotifier(cfg)
	}
	if cfg := loadSlackConfig(logger); cfg.Enabled {
		logger.Info("run reports will be sent to Slack")
		return notifier.NewSlackNotifier(cfg)
	}
	logger.Info("run report notifications disabled")
	return notifier.NewNoOpNotifier()
}

// loadDiscordConfig validates DISCORD_ENABLED / DISCORD_WEBHOOK_URL. Any
// validation failure disables the channel rather than failing startup.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if os.Getenv("DISCORD_ENABLED") != "true" {
		return notifier.DiscordConfig{}
	}

	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host != "discord.com" || !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("invalid Discord webhook URL, notifications disabled")
		return notifier.DiscordConfig{}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig validates SLACK_ENABLED / SLACK_WEBHOOK_URL.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if os.Getenv("SLACK_ENABLED") != "true" {
		return notifier.SlackConfig{}
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || !strings.HasSuffix(u.Host, "slack.com") {
		logger.Warn("invalid Slack webhook URL, notifications disabled")
		return notifier.SlackConfig{}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// buildCardCache connects to Redis unless CACHE_ENABLED=false.
func buildCardCache(ctx context.Context, logger *slog.Logger) (*cache.PostCardCache, error) {
	cfg, err := cache.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	cardCache := cache.NewPostCardCache(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cardCache.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("cache ping: %w", err)
	}
	logger.Info("post card cache connected")
	return cardCache, nil
}

// recordRunOutcome feeds the run summary into the worker metrics. Business
// counters are recorded by the stages themselves.
func recordRunOutcome(workerMetrics *workerPkg.WorkerMetrics, summary *pipeline.RunSummary) {
	workerMetrics.RecordRun(string(summary.Status))
	workerMetrics.RecordRunDuration(summary.Duration.Seconds())
	workerMetrics.RecordKeywordsProcessed(summary.Keywords)
	workerMetrics.RecordPostsCreated(summary.PostsCreated)
	if summary.Status == pipeline.RunSuccess {
		workerMetrics.RecordLastSuccess()
	}
}

// watchDBStats publishes connection pool gauges once a minute.
func watchDBStats(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := database.Stats()
			metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)
		}
	}
}

// newAPIHTTPClient builds the shared HTTP client for the external search
// APIs. TLS 1.2+ is enforced.
func newAPIHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
