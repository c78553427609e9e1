package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"trendpost/internal/domain/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubTrendSource struct {
	entries []TrendEntry
	err     error
	calls   int
}

func (s *stubTrendSource) FetchTrending(ctx context.Context) ([]TrendEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type stubKeywordRepo struct {
	mu     sync.Mutex
	nextID int64
	byText map[string]*entity.Keyword
	err    error
}

func newStubKeywordRepo() *stubKeywordRepo {
	return &stubKeywordRepo{byText: make(map[string]*entity.Keyword)}
}

func (s *stubKeywordRepo) UpsertByText(ctx context.Context, text string) (*entity.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if kw, ok := s.byText[text]; ok {
		return kw, nil
	}
	s.nextID++
	kw := &entity.Keyword{ID: s.nextID, Text: text}
	s.byText[text] = kw
	return kw, nil
}

type stubMetricRepo struct {
	mu       sync.Mutex
	history  map[int64][]*entity.KeywordMetricHourly // bucket_at descending
	inserted []*entity.KeywordMetricHourly
	updated  map[int64]*entity.KeywordMetricHourly

	historyErr map[int64]error
	updateErr  map[int64]error
	insertErr  error
}

func newStubMetricRepo() *stubMetricRepo {
	return &stubMetricRepo{
		history:    make(map[int64][]*entity.KeywordMetricHourly),
		updated:    make(map[int64]*entity.KeywordMetricHourly),
		historyErr: make(map[int64]error),
		updateErr:  make(map[int64]error),
	}
}

func (s *stubMetricRepo) Insert(ctx context.Context, m *entity.KeywordMetricHourly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	cp := *m
	s.inserted = append(s.inserted, &cp)
	s.history[m.KeywordID] = append([]*entity.KeywordMetricHourly{&cp}, s.history[m.KeywordID]...)
	return nil
}

func (s *stubMetricRepo) LatestBefore(ctx context.Context, keywordID int64, platform string, before time.Time) (*entity.KeywordMetricHourly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.history[keywordID] {
		if m.BucketAt.Before(before) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *stubMetricRepo) History(ctx context.Context, keywordID int64, platform string, limit int) ([]*entity.KeywordMetricHourly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.historyErr[keywordID]; err != nil {
		return nil, err
	}
	rows := s.history[keywordID]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*entity.KeywordMetricHourly, len(rows))
	for i, m := range rows {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (s *stubMetricRepo) UpdateEvaluation(ctx context.Context, m *entity.KeywordMetricHourly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[m.KeywordID]; err != nil {
		return err
	}
	cp := *m
	s.updated[m.KeywordID] = &cp
	return nil
}

// seedMetric registers an existing history row for a keyword, newest first.
func (s *stubMetricRepo) seedMetric(m *entity.KeywordMetricHourly) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[m.KeywordID] = append([]*entity.KeywordMetricHourly{m}, s.history[m.KeywordID]...)
}

type stubNewsSource struct {
	mu      sync.Mutex
	results map[string][]NewsItem
	errs    map[string]error
	calls   int
}

func newStubNewsSource() *stubNewsSource {
	return &stubNewsSource{results: make(map[string][]NewsItem), errs: make(map[string]error)}
}

func (s *stubNewsSource) SearchNews(ctx context.Context, keyword string, limit int) ([]NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[keyword]; err != nil {
		return nil, err
	}
	return s.results[keyword], nil
}

type stubVideoSource struct {
	mu      sync.Mutex
	results map[string][]VideoItem
	errs    map[string]error
	calls   int
}

func newStubVideoSource() *stubVideoSource {
	return &stubVideoSource{results: make(map[string][]VideoItem), errs: make(map[string]error)}
}

func (s *stubVideoSource) SearchVideos(ctx context.Context, keyword string, limit int) ([]VideoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[keyword]; err != nil {
		return nil, err
	}
	return s.results[keyword], nil
}

type stubSourceRepo struct {
	mu      sync.Mutex
	sources map[string]*entity.Source
	links   map[entity.KeywordSource]bool

	thumbnails map[string]string

	upsertErr error
	linkErr   error
	listErr   map[int64]error
}

func newStubSourceRepo() *stubSourceRepo {
	return &stubSourceRepo{
		sources:    make(map[string]*entity.Source),
		links:      make(map[entity.KeywordSource]bool),
		thumbnails: make(map[string]string),
		listErr:    make(map[int64]error),
	}
}

func (s *stubSourceRepo) BulkUpsert(ctx context.Context, sources []*entity.Source) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	var fresh []string
	for _, src := range sources {
		if _, ok := s.sources[src.Fingerprint]; ok {
			continue
		}
		cp := *src
		s.sources[src.Fingerprint] = &cp
		fresh = append(fresh, src.Fingerprint)
	}
	return fresh, nil
}

func (s *stubSourceRepo) LinkKeywords(ctx context.Context, links []entity.KeywordSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	for _, l := range links {
		s.links[l] = true
	}
	return nil
}

func (s *stubSourceRepo) ListByKeyword(ctx context.Context, keywordID int64, limit int) ([]*entity.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listErr[keywordID]; err != nil {
		return nil, err
	}
	var out []*entity.Source
	for link := range s.links {
		if link.KeywordID != keywordID {
			continue
		}
		if src, ok := s.sources[link.Fingerprint]; ok {
			cp := *src
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubSourceRepo) SetThumbnailIfEmpty(ctx context.Context, fingerprint, thumbnailURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumbnails[fingerprint] = thumbnailURL
	if src, ok := s.sources[fingerprint]; ok && src.ThumbnailURL == "" {
		src.ThumbnailURL = thumbnailURL
	}
	return nil
}

type stubPostRepo struct {
	mu       sync.Mutex
	nextID   int64
	posts    []*entity.Post
	keywords map[int64]int64    // post id -> keyword id
	sources  map[int64][]string // post id -> fingerprints

	createErr error
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{
		keywords: make(map[int64]int64),
		sources:  make(map[int64][]string),
	}
}

func (s *stubPostRepo) Create(ctx context.Context, post *entity.Post, keywordID int64, fingerprints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	post.ID = s.nextID
	cp := *post
	s.posts = append(s.posts, &cp)
	s.keywords[post.ID] = keywordID
	s.sources[post.ID] = append(s.sources[post.ID], fingerprints...)
	return nil
}

type stubSummarizer struct {
	mu      sync.Mutex
	err     error
	errOn   string // substring of the prompt that triggers err
	prompts []string
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt string) (Headline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil && (s.errOn == "" || strings.Contains(prompt, s.errOn)) {
		return Headline{}, s.err
	}
	return Headline{
		Title:   fmt.Sprintf("headline %d", len(s.prompts)),
		Summary: "a generated summary",
	}, nil
}

type stubContentFetcher struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubContentFetcher) FetchContent(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubMetadataFetcher struct {
	mu    sync.Mutex
	meta  PageMetadata
	err   error
	urls  []string
	calls int
}

func (s *stubMetadataFetcher) FetchMetadata(ctx context.Context, url string) (PageMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.urls = append(s.urls, url)
	if s.err != nil {
		return PageMetadata{}, s.err
	}
	return s.meta, nil
}

// inlinePool records submitted tasks; runAll executes them synchronously so
// tests can assert on enrichment effects deterministically.
type inlinePool struct {
	mu    sync.Mutex
	tasks []func(context.Context)
	names []string
}

func (p *inlinePool) Submit(name string, fn func(context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, name)
	p.tasks = append(p.tasks, fn)
	return true
}

func (p *inlinePool) runAll(ctx context.Context) {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()
	for _, fn := range tasks {
		fn(ctx)
	}
}

type stubCardCache struct {
	mu    sync.Mutex
	cards []PostCardView
	keys  [][]int64
	err   error
}

func (s *stubCardCache) WarmPostCard(ctx context.Context, card PostCardView, keywordIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cards = append(s.cards, card)
	s.keys = append(s.keys, keywordIDs)
	return nil
}
