package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

// PageMetadata holds the Open Graph metadata extracted from a page.
type PageMetadata struct {
	Title       string
	Description string
	ImageURL    string
}

// MetadataFetcher extracts Open Graph metadata from pages. It backs the
// thumbnail enrichment step: news results rarely carry an image in the feed
// itself, so the article page's og:image is the best available source.
//
// Thread safety: MetadataFetcher is safe for concurrent use.
type MetadataFetcher struct {
	client  *http.Client
	gateway *gateway.Gateway
	config  PageFetchConfig
}

// NewMetadataFetcher creates a MetadataFetcher with the given configuration.
func NewMetadataFetcher(config PageFetchConfig) *MetadataFetcher {
	return &MetadataFetcher{
		client: newHTTPClient(config),
		gateway: gateway.New(gateway.Config{
			Name:          "page-metadata",
			RatePerSecond: 10,
			Burst:         20,
			Retry:         retry.ScraperConfig(),
			Breaker:       circuitbreaker.ScraperConfig(),
		}),
		config: config,
	}
}

// FetchMetadata fetches the page at the given URL and extracts its Open Graph
// metadata. Twitter card tags serve as a fallback for pages without og: tags.
// A missing tag leaves the corresponding field empty; an error is returned
// only when the page itself cannot be fetched or parsed.
func (f *MetadataFetcher) FetchMetadata(ctx context.Context, urlStr string) (PageMetadata, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return PageMetadata{}, err
	}

	return gateway.Do(ctx, f.gateway, func(ctx context.Context) (PageMetadata, error) {
		return f.doFetch(ctx, urlStr)
	})
}

func (f *MetadataFetcher) doFetch(ctx context.Context, urlStr string) (PageMetadata, error) {
	body, finalURL, err := fetchPage(ctx, f.client, f.config, urlStr)
	if err != nil {
		return PageMetadata{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageMetadata{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	meta := PageMetadata{
		Title:       metaContent(doc, "og:title", "twitter:title"),
		Description: metaContent(doc, "og:description", "twitter:description"),
		ImageURL:    metaContent(doc, "og:image", "twitter:image"),
	}

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	meta.ImageURL = resolveImageURL(meta.ImageURL, finalURL)

	return meta, nil
}

// metaContent returns the content attribute of the first matching meta tag.
// Both property= (Open Graph) and name= (Twitter cards) attributes are
// checked, in the order the names are given.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		selector := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// resolveImageURL resolves a possibly relative og:image value against the
// final page URL. Values that cannot be resolved to an http(s) URL are
// discarded.
func resolveImageURL(image string, base *url.URL) string {
	if image == "" {
		return ""
	}
	ref, err := url.Parse(image)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
