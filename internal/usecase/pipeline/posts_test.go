package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"trendpost/internal/domain/entity"
)

func seedLinkedSource(repo *stubSourceRepo, keywordID int64, src *entity.Source) {
	repo.sources[src.Fingerprint] = src
	repo.links[entity.KeywordSource{KeywordID: keywordID, Fingerprint: src.Fingerprint}] = true
}

func newsSource(fp, title, desc string) *entity.Source {
	return &entity.Source{
		Fingerprint:   fp,
		NormalizedURL: "https://example.com/" + fp,
		Title:         title,
		Description:   desc,
		Platform:      entity.SourcePlatformNews,
	}
}

func TestPostGenerator_CreatesLinkedPost(t *testing.T) {
	sources := newStubSourceRepo()
	longDesc := strings.Repeat("full coverage of the event. ", 20)
	seedLinkedSource(sources, 1, newsSource("fp1", "Big event happens", longDesc))

	posts := newStubPostRepo()
	summarizer := &stubSummarizer{}
	fetcher := &stubContentFetcher{}
	gen := NewPostGenerator(sources, posts, summarizer, fetcher, 5, 2, discardLogger())

	result, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "big event"}}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(result.Posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(result.Posts))
	}
	created := result.Posts[0]
	if created.Title == "" || created.Summary == "" {
		t.Errorf("created post missing headline: %+v", created)
	}
	if !created.BucketAt.Equal(noveltyBucket) {
		t.Errorf("BucketAt = %v, want %v", created.BucketAt, noveltyBucket)
	}
	if posts.keywords[created.PostID] != 1 {
		t.Error("post not linked to its keyword")
	}
	if got := posts.sources[created.PostID]; len(got) != 1 || got[0] != "fp1" {
		t.Errorf("post source links = %v, want [fp1]", got)
	}
	// The snippets were long enough; no article fetch needed.
	if fetcher.calls != 0 {
		t.Errorf("content fetcher called %d times, want 0", fetcher.calls)
	}
}

func TestPostGenerator_PersistFailureLeavesNoPost(t *testing.T) {
	sources := newStubSourceRepo()
	longDesc := strings.Repeat("full coverage of the event. ", 20)
	seedLinkedSource(sources, 1, newsSource("fp1", "Big event happens", longDesc))

	posts := newStubPostRepo()
	posts.createErr = errors.New("connection reset")
	gen := NewPostGenerator(sources, posts, &stubSummarizer{}, &stubContentFetcher{}, 5, 2, discardLogger())

	result, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "big event"}}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.Failed != 1 || len(result.Posts) != 0 {
		t.Fatalf("Failed=%d Posts=%d, want 1 and 0", result.Failed, len(result.Posts))
	}
	if len(posts.posts) != 0 {
		t.Fatalf("%d post row(s) recorded despite persistence failing", len(posts.posts))
	}
	if len(posts.keywords) != 0 || len(posts.sources) != 0 {
		t.Fatal("link tables written despite persistence failing")
	}
}

func TestPostGenerator_PromptCarriesKeywordAndSources(t *testing.T) {
	sources := newStubSourceRepo()
	longDesc := strings.Repeat("details. ", 50)
	seedLinkedSource(sources, 1, newsSource("fp1", "Rocket launch scrubbed", longDesc))

	posts := newStubPostRepo()
	summarizer := &stubSummarizer{}
	gen := NewPostGenerator(sources, posts, summarizer, &stubContentFetcher{}, 5, 2, discardLogger())

	if _, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "rocket launch"}}, noveltyBucket); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(summarizer.prompts) != 1 {
		t.Fatalf("summarizer called %d times, want 1", len(summarizer.prompts))
	}
	prompt := summarizer.prompts[0]
	for _, want := range []string{"rocket launch", "Rocket launch scrubbed"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestPostGenerator_ThinSnippetsTriggerArticleFetch(t *testing.T) {
	sources := newStubSourceRepo()
	seedLinkedSource(sources, 1, newsSource("fp1", "Terse headline", "short"))

	posts := newStubPostRepo()
	summarizer := &stubSummarizer{}
	fetcher := &stubContentFetcher{text: "the full article body with the actual details"}
	gen := NewPostGenerator(sources, posts, summarizer, fetcher, 5, 2, discardLogger())

	if _, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "kw"}}, noveltyBucket); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("content fetcher called %d times, want 1", fetcher.calls)
	}
	if !strings.Contains(summarizer.prompts[0], "the full article body") {
		t.Error("fetched article text not included in the prompt")
	}
}

func TestPostGenerator_ArticleFetchFailureStillGeneratesPost(t *testing.T) {
	sources := newStubSourceRepo()
	seedLinkedSource(sources, 1, newsSource("fp1", "Terse headline", "short"))

	posts := newStubPostRepo()
	fetcher := &stubContentFetcher{err: errors.New("paywalled")}
	gen := NewPostGenerator(sources, posts, &stubSummarizer{}, fetcher, 5, 2, discardLogger())

	result, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "kw"}}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Posts) != 1 || result.Failed != 0 {
		t.Errorf("posts = %d, failed = %d, want 1 and 0", len(result.Posts), result.Failed)
	}
}

func TestPostGenerator_SummarizerFailureIsIsolated(t *testing.T) {
	sources := newStubSourceRepo()
	seedLinkedSource(sources, 1, newsSource("fp1", "Broken topic story", "desc"))
	seedLinkedSource(sources, 2, newsSource("fp2", "Healthy topic story", "desc"))

	posts := newStubPostRepo()
	summarizer := &stubSummarizer{err: errors.New("model overloaded"), errOn: "broken topic"}
	gen := NewPostGenerator(sources, posts, summarizer, &stubContentFetcher{}, 5, 1, discardLogger())

	result, err := gen.Generate(context.Background(), []PostableKeyword{
		{ID: 1, Text: "broken topic"},
		{ID: 2, Text: "healthy topic"},
	}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if len(result.Posts) != 1 || result.Posts[0].KeywordID != 2 {
		t.Errorf("Posts = %+v, want exactly the healthy keyword's post", result.Posts)
	}
}

func TestPostGenerator_KeywordWithoutSourcesIsSkippedQuietly(t *testing.T) {
	gen := NewPostGenerator(newStubSourceRepo(), newStubPostRepo(), &stubSummarizer{}, &stubContentFetcher{}, 5, 2, discardLogger())

	result, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "orphan"}}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Posts) != 0 || result.Failed != 0 {
		t.Errorf("posts = %d, failed = %d, want 0 and 0", len(result.Posts), result.Failed)
	}
}

func TestPostGenerator_UsesFirstAvailableThumbnail(t *testing.T) {
	sources := newStubSourceRepo()
	plain := newsSource("fp1", "No thumb", "desc")
	withThumb := newsSource("fp2", "Has thumb", "desc")
	withThumb.ThumbnailURL = "https://example.com/thumb.png"
	seedLinkedSource(sources, 1, plain)
	seedLinkedSource(sources, 1, withThumb)

	gen := NewPostGenerator(sources, newStubPostRepo(), &stubSummarizer{}, &stubContentFetcher{}, 5, 2, discardLogger())
	result, err := gen.Generate(context.Background(), []PostableKeyword{{ID: 1, Text: "kw"}}, noveltyBucket)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if got := result.Posts[0].ThumbnailURL; got != "https://example.com/thumb.png" {
		t.Errorf("ThumbnailURL = %q, want the available source thumbnail", got)
	}
}
