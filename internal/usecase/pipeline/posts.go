package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
	"trendpost/internal/utils/text"
)

// minPromptBodyLength is the snippet length below which the generator tries
// to fetch the newest article's full text before summarizing.
const minPromptBodyLength = 300

// maxArticleExcerptLength bounds the fetched article text included in the
// prompt so a long page does not blow out the summarizer's input.
const maxArticleExcerptLength = 4000

// PostGenerator turns each postable keyword's sources into one summarized
// post. Keywords fail independently: one bad summarization never costs
// another keyword its post.
type PostGenerator struct {
	sources    repository.SourceRepository
	posts      repository.PostRepository
	summarizer Summarizer
	fetcher    ContentFetcher

	sourceLimit int
	parallelism int
	logger      *slog.Logger
}

// NewPostGenerator creates a PostGenerator.
func NewPostGenerator(
	sources repository.SourceRepository,
	posts repository.PostRepository,
	summarizer Summarizer,
	fetcher ContentFetcher,
	sourceLimit int,
	parallelism int,
	logger *slog.Logger,
) *PostGenerator {
	return &PostGenerator{
		sources:     sources,
		posts:       posts,
		summarizer:  summarizer,
		fetcher:     fetcher,
		sourceLimit: sourceLimit,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Generate creates at most one post per postable keyword for the bucket.
// Summarizer calls run concurrently bounded by the configured parallelism.
func (p *PostGenerator) Generate(ctx context.Context, postable []PostableKeyword, bucket time.Time) (*GenerateResult, error) {
	result := &GenerateResult{}
	if len(postable) == 0 {
		return result, nil
	}

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.parallelism)

	for _, kw := range postable {
		group.Go(func() error {
			post, err := p.generateOne(groupCtx, kw, bucket)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error("post generation failed, keyword skipped",
					slog.Int64("keyword_id", kw.ID),
					slog.String("keyword", kw.Text),
					slog.Any("error", err))
				result.Failed++
				return nil
			}
			if post != nil {
				result.Posts = append(result.Posts, *post)
			}
			return nil
		})
	}
	// Per-keyword errors never escape the goroutines.
	_ = group.Wait()

	metrics.RecordPostsPublished(len(result.Posts), result.Failed)
	p.logger.Info("post generation completed",
		slog.Int("posts", len(result.Posts)),
		slog.Int("failed", result.Failed))

	return result, nil
}

// generateOne builds and persists the post for a single keyword. A keyword
// with no linked sources yields no post and no error.
func (p *PostGenerator) generateOne(ctx context.Context, kw PostableKeyword, bucket time.Time) (*CreatedPost, error) {
	sources, err := p.sources.ListByKeyword(ctx, kw.ID, p.sourceLimit)
	if err != nil {
		return nil, fmt.Errorf("generateOne: %w", err)
	}
	if len(sources) == 0 {
		p.logger.Debug("no sources for keyword, post skipped",
			slog.Int64("keyword_id", kw.ID),
			slog.String("keyword", kw.Text))
		return nil, nil
	}

	prompt := p.buildPrompt(ctx, kw.Text, sources)

	headline, err := p.summarizer.Summarize(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generateOne: %w", err)
	}

	post := &entity.Post{
		Title:        headline.Title,
		Summary:      headline.Summary,
		ThumbnailURL: firstThumbnail(sources),
		BucketAt:     bucket,
	}
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("generateOne: %w", err)
	}
	fingerprints := make([]string, len(sources))
	for i, src := range sources {
		fingerprints[i] = src.Fingerprint
	}
	if err := p.posts.Create(ctx, post, kw.ID, fingerprints); err != nil {
		return nil, fmt.Errorf("generateOne: %w", err)
	}

	return &CreatedPost{
		PostID:       post.ID,
		KeywordID:    kw.ID,
		KeywordText:  kw.Text,
		Title:        post.Title,
		Summary:      post.Summary,
		ThumbnailURL: post.ThumbnailURL,
		BucketAt:     bucket,
	}, nil
}

// buildPrompt assembles the summarization prompt from the keyword and its
// source snippets. When the snippets are thin it tries to pull the newest
// news article's full text; that fetch is best effort and its failure only
// gets logged.
func (p *PostGenerator) buildPrompt(ctx context.Context, keyword string, sources []*entity.Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trending keyword: %s\n\nSources:\n", keyword)

	bodyLen := 0
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, src.Platform, src.Title)
		if src.Description != "" {
			fmt.Fprintf(&b, "   %s\n", src.Description)
			bodyLen += len(src.Description)
		}
	}

	if bodyLen < minPromptBodyLength {
		if article := p.fetchNewestArticle(ctx, sources); article != "" {
			b.WriteString("\nArticle text:\n")
			b.WriteString(article)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nWrite a short news digest post about this trending keyword based on the sources above.")
	return b.String()
}

// fetchNewestArticle extracts the text of the newest news source, if any.
func (p *PostGenerator) fetchNewestArticle(ctx context.Context, sources []*entity.Source) string {
	for _, src := range sources {
		if src.Platform != entity.SourcePlatformNews {
			continue
		}
		article, err := p.fetcher.FetchContent(ctx, src.NormalizedURL)
		if err != nil {
			p.logger.Debug("article fetch for prompt failed",
				slog.String("url", src.NormalizedURL),
				slog.Any("error", err))
			return ""
		}
		return text.TruncateRunes(article, maxArticleExcerptLength)
	}
	return ""
}

// firstThumbnail returns the first source thumbnail, preferring the newest.
func firstThumbnail(sources []*entity.Source) string {
	for _, src := range sources {
		if src.ThumbnailURL != "" {
			return src.ThumbnailURL
		}
	}
	return ""
}
