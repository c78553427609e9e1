package main

import (
	"context"

	"trendpost/internal/infra/cache"
	"trendpost/internal/infra/fetcher"
	"trendpost/internal/infra/newsapi"
	"trendpost/internal/infra/summarizer"
	"trendpost/internal/infra/trends"
	"trendpost/internal/infra/videoapi"
	"trendpost/internal/usecase/pipeline"
)

// The pipeline package declares the ports it consumes; these adapters map
// the infra clients onto them without leaking infra types upward.

type trendSourceAdapter struct {
	client *trends.Client
}

func (a *trendSourceAdapter) FetchTrending(ctx context.Context) ([]pipeline.TrendEntry, error) {
	entries, err := a.client.FetchTrending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.TrendEntry, len(entries))
	for i, e := range entries {
		out[i] = pipeline.TrendEntry{Text: e.Keyword, Volume: e.Volume}
	}
	return out, nil
}

type newsSourceAdapter struct {
	client *newsapi.Client
}

func (a *newsSourceAdapter) SearchNews(ctx context.Context, keyword string, limit int) ([]pipeline.NewsItem, error) {
	items, err := a.client.Search(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.NewsItem, len(items))
	for i, item := range items {
		out[i] = pipeline.NewsItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PublishedAt: item.PublishedAt,
		}
	}
	return out, nil
}

type videoSourceAdapter struct {
	client *videoapi.Client
}

func (a *videoSourceAdapter) SearchVideos(ctx context.Context, keyword string, limit int) ([]pipeline.VideoItem, error) {
	items, err := a.client.Search(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.VideoItem, len(items))
	for i, item := range items {
		out[i] = pipeline.VideoItem{
			VideoID:      item.VideoID,
			Title:        item.Title,
			Description:  item.Description,
			ThumbnailURL: item.ThumbnailURL,
			PublishedAt:  item.PublishedAt,
		}
	}
	return out, nil
}

type summarizerAdapter struct {
	impl summarizer.Summarizer
}

func (a *summarizerAdapter) Summarize(ctx context.Context, prompt string) (pipeline.Headline, error) {
	headline, err := a.impl.Summarize(ctx, prompt)
	if err != nil {
		return pipeline.Headline{}, err
	}
	return pipeline.Headline{Title: headline.Title, Summary: headline.Summary}, nil
}

type metadataAdapter struct {
	impl *fetcher.MetadataFetcher
}

func (a *metadataAdapter) FetchMetadata(ctx context.Context, url string) (pipeline.PageMetadata, error) {
	meta, err := a.impl.FetchMetadata(ctx, url)
	if err != nil {
		return pipeline.PageMetadata{}, err
	}
	return pipeline.PageMetadata{
		Title:       meta.Title,
		Description: meta.Description,
		ImageURL:    meta.ImageURL,
	}, nil
}

type cardCacheAdapter struct {
	impl *cache.PostCardCache
}

func (a *cardCacheAdapter) WarmPostCard(ctx context.Context, card pipeline.PostCardView, keywordIDs []int64) error {
	return a.impl.Warm(ctx, cache.PostCard{
		PostID:       card.PostID,
		Title:        card.Title,
		Summary:      card.Summary,
		ThumbnailURL: card.ThumbnailURL,
		Keywords:     card.Keywords,
		BucketAt:     card.BucketAt,
	}, keywordIDs)
}

// noopContentFetcher stands in when page fetching is disabled; prompts fall
// back to source snippets only.
type noopContentFetcher struct{}

func (noopContentFetcher) FetchContent(context.Context, string) (string, error) {
	return "", nil
}

// noopMetadataFetcher stands in when page fetching is disabled; sources keep
// whatever thumbnail the search API returned.
type noopMetadataFetcher struct{}

func (noopMetadataFetcher) FetchMetadata(context.Context, string) (pipeline.PageMetadata, error) {
	return pipeline.PageMetadata{}, nil
}

// buildPageFetchers wires the content and metadata fetchers from the page
// fetch config. Disabling page fetching turns off both: content enrichment
// for prompts and metadata enrichment for thumbnails.
func buildPageFetchers(cfg fetcher.PageFetchConfig) (pipeline.ContentFetcher, pipeline.MetadataFetcher) {
	if !cfg.Enabled {
		return noopContentFetcher{}, noopMetadataFetcher{}
	}
	return fetcher.NewReadabilityFetcher(cfg), &metadataAdapter{impl: fetcher.NewMetadataFetcher(cfg)}
}
