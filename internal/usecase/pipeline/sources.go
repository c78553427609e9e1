package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
)

// SourceSearchOrchestrator fans out news and video searches across the
// postable keywords, dedups results by fingerprint, persists them in bulk,
// and hands newly inserted thumbnail-less sources to background enrichment.
type SourceSearchOrchestrator struct {
	news     NewsSource
	videos   VideoSource
	sources  repository.SourceRepository
	metadata MetadataFetcher
	pool     TaskPool

	searchLimit int
	parallelism int
	logger      *slog.Logger
}

// NewSourceSearchOrchestrator creates a SourceSearchOrchestrator.
func NewSourceSearchOrchestrator(
	news NewsSource,
	videos VideoSource,
	sources repository.SourceRepository,
	metadata MetadataFetcher,
	pool TaskPool,
	searchLimit int,
	parallelism int,
	logger *slog.Logger,
) *SourceSearchOrchestrator {
	return &SourceSearchOrchestrator{
		news:        news,
		videos:      videos,
		sources:     sources,
		metadata:    metadata,
		pool:        pool,
		searchLimit: searchLimit,
		parallelism: parallelism,
		logger:      logger,
	}
}

// candidateSet collects deduplicated sources and keyword links across the
// concurrent searches. The first result for a fingerprint wins; later
// duplicates only add a keyword link.
type candidateSet struct {
	mu      sync.Mutex
	sources map[string]*entity.Source
	links   map[entity.KeywordSource]bool
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		sources: make(map[string]*entity.Source),
		links:   make(map[entity.KeywordSource]bool),
	}
}

func (c *candidateSet) add(keywordID int64, src *entity.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[src.Fingerprint]; !ok {
		c.sources[src.Fingerprint] = src
	}
	c.links[entity.KeywordSource{KeywordID: keywordID, Fingerprint: src.Fingerprint}] = true
}

// Search runs the per-keyword news and video searches concurrently, bounded
// by the configured parallelism, then persists the deduplicated set in two
// bulk writes. A single platform failing for a single keyword costs only
// that keyword's results on that platform; a persistence failure is fatal.
func (o *SourceSearchOrchestrator) Search(ctx context.Context, postable []PostableKeyword) (*SearchResult, error) {
	result := &SearchResult{}
	if len(postable) == 0 {
		return result, nil
	}

	candidates := newCandidateSet()
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.parallelism)

	for _, kw := range postable {
		group.Go(func() error {
			newsOK, videoOK := o.searchKeyword(groupCtx, kw, candidates)

			mu.Lock()
			if newsOK {
				result.NewsFetched++
			} else {
				result.NewsFailed++
			}
			if videoOK {
				result.VideoFetched++
			} else {
				result.VideoFailed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fatal("search", err)
	}

	sources := make([]*entity.Source, 0, len(candidates.sources))
	for _, src := range candidates.sources {
		sources = append(sources, src)
	}
	links := make([]entity.KeywordSource, 0, len(candidates.links))
	for link := range candidates.links {
		links = append(links, link)
	}

	inserted, err := o.sources.BulkUpsert(ctx, sources)
	if err != nil {
		return nil, fatal("search", err)
	}
	if err := o.sources.LinkKeywords(ctx, links); err != nil {
		return nil, fatal("search", err)
	}

	result.SourcesInserted = len(inserted)
	result.LinksInserted = len(links)

	perPlatform := make(map[string]int)
	for _, fingerprint := range inserted {
		if src, ok := candidates.sources[fingerprint]; ok {
			perPlatform[src.Platform]++
		}
	}
	for platform, count := range perPlatform {
		metrics.RecordSourceResults(platform, count)
	}

	o.enqueueThumbnailEnrichment(inserted, candidates)

	o.logger.Info("source search completed",
		slog.Int("keywords", len(postable)),
		slog.Int("sources_inserted", result.SourcesInserted),
		slog.Int("links_inserted", result.LinksInserted),
		slog.Int("news_failed", result.NewsFailed),
		slog.Int("video_failed", result.VideoFailed))

	return result, nil
}

// searchKeyword runs the two platform searches for one keyword. The two
// platforms run concurrently and fail independently.
func (o *SourceSearchOrchestrator) searchKeyword(ctx context.Context, kw PostableKeyword, candidates *candidateSet) (newsOK, videoOK bool) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		items, err := o.news.SearchNews(ctx, kw.Text, o.searchLimit)
		if err != nil {
			metrics.RecordSourceSearchError(entity.SourcePlatformNews)
			o.logger.Warn("news search failed",
				slog.String("keyword", kw.Text),
				slog.Any("error", err))
			return
		}
		newsOK = true
		for _, item := range items {
			normalized := entity.NormalizeURL(item.Link)
			candidates.add(kw.ID, &entity.Source{
				Fingerprint:   entity.Fingerprint(normalized),
				NormalizedURL: normalized,
				Title:         item.Title,
				Description:   item.Description,
				PublishedAt:   item.PublishedAt,
				Platform:      entity.SourcePlatformNews,
			})
		}
	}()

	go func() {
		defer wg.Done()
		items, err := o.videos.SearchVideos(ctx, kw.Text, o.searchLimit)
		if err != nil {
			metrics.RecordSourceSearchError(entity.SourcePlatformVideo)
			o.logger.Warn("video search failed",
				slog.String("keyword", kw.Text),
				slog.Any("error", err))
			return
		}
		videoOK = true
		for _, item := range items {
			watchURL := entity.VideoWatchURL(item.VideoID)
			candidates.add(kw.ID, &entity.Source{
				Fingerprint:   entity.Fingerprint(watchURL),
				NormalizedURL: watchURL,
				Title:         item.Title,
				Description:   item.Description,
				ThumbnailURL:  item.ThumbnailURL,
				PublishedAt:   item.PublishedAt,
				Platform:      entity.SourcePlatformVideo,
				VideoID:       item.VideoID,
			})
		}
	}()

	wg.Wait()
	return newsOK, videoOK
}

// enqueueThumbnailEnrichment submits a background metadata fetch for every
// newly inserted source that has no thumbnail. Enrichment is fire-and-forget:
// the run never waits on it and its failures only get logged.
func (o *SourceSearchOrchestrator) enqueueThumbnailEnrichment(inserted []string, candidates *candidateSet) {
	for _, fingerprint := range inserted {
		src, ok := candidates.sources[fingerprint]
		if !ok || src.ThumbnailURL != "" {
			continue
		}

		pageURL := src.NormalizedURL
		o.pool.Submit("thumbnail-enrich", func(taskCtx context.Context) {
			meta, err := o.metadata.FetchMetadata(taskCtx, pageURL)
			if err != nil {
				o.logger.Debug("thumbnail enrichment fetch failed",
					slog.String("fingerprint", fingerprint),
					slog.Any("error", err))
				return
			}
			if meta.ImageURL == "" {
				return
			}
			if err := o.sources.SetThumbnailIfEmpty(taskCtx, fingerprint, meta.ImageURL); err != nil {
				o.logger.Debug("thumbnail enrichment update failed",
					slog.String("fingerprint", fingerprint),
					slog.Any("error", err))
			}
		})
	}
}
