// Package cache provides the Redis-backed post card cache. Freshly generated
// posts are warmed into Redis so the read side can serve trend cards without
// touching Postgres; entries expire after a configurable TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trendpost/internal/domain/entity"
)

// DefaultTTL is how long a warmed card stays in the cache. Trend cards go
// stale quickly, a day is plenty.
const DefaultTTL = 24 * time.Hour

// PostCard is the denormalized, cache-ready view of a generated post.
type PostCard struct {
	PostID       int64     `json:"post_id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Keywords     []string  `json:"keywords"`
	BucketAt     time.Time `json:"bucket_at"`
}

// Config holds Redis connection settings for the post card cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LoadConfigFromEnv reads cache configuration from environment variables.
// Unset variables keep their defaults.
//
// Environment variables:
//   - REDIS_ADDR: host:port (default: localhost:6379)
//   - REDIS_PASSWORD: password (default: empty)
//   - REDIS_DB: database number (default: 0)
//   - CACHE_TTL: entry lifetime, e.g. "24h" (default: 24h)
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Addr: "localhost:6379",
		TTL:  DefaultTTL,
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	if db := os.Getenv("REDIS_DB"); db != "" {
		parsed, err := strconv.Atoi(db)
		if err != nil {
			return cfg, fmt.Errorf("invalid REDIS_DB: %v", err)
		}
		cfg.DB = parsed
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return cfg, fmt.Errorf("invalid CACHE_TTL: %v (expected format: '24h', '90m')", err)
		}
		if parsed <= 0 {
			return cfg, fmt.Errorf("CACHE_TTL must be positive, got %v", parsed)
		}
		cfg.TTL = parsed
	}
	return cfg, nil
}

// PostCardCache stores post cards in Redis with a TTL.
//
// Key layout:
//   - post:card:<post_id>       -> JSON-encoded PostCard
//   - post:latest:<keyword_id>  -> post_id of the newest card for the keyword
type PostCardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostCardCache creates a cache backed by the given Redis configuration.
// The connection is lazy; use Ping to verify reachability at startup.
func NewPostCardCache(cfg Config) *PostCardCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostCardCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// Ping verifies the Redis connection.
func (c *PostCardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis connection.
func (c *PostCardCache) Close() error {
	return c.client.Close()
}

func cardKey(postID int64) string {
	return fmt.Sprintf("post:card:%d", postID)
}

func latestKey(keywordID int64) string {
	return fmt.Sprintf("post:latest:%d", keywordID)
}

// Warm stores the card and points each keyword's latest marker at it. Both
// entries carry the configured TTL, so an idle keyword's marker expires
// together with its card.
func (c *PostCardCache) Warm(ctx context.Context, card PostCard, keywordIDs []int64) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("Warm: marshal card: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, cardKey(card.PostID), payload, c.ttl)
	for _, keywordID := range keywordIDs {
		pipe.Set(ctx, latestKey(keywordID), card.PostID, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("Warm: %w", err)
	}
	return nil
}

// Card returns the cached card for a post. Returns entity.ErrNotFound when
// the entry is absent or expired.
func (c *PostCardCache) Card(ctx context.Context, postID int64) (PostCard, error) {
	payload, err := c.client.Get(ctx, cardKey(postID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PostCard{}, entity.ErrNotFound
	}
	if err != nil {
		return PostCard{}, fmt.Errorf("Card: %w", err)
	}

	var card PostCard
	if err := json.Unmarshal(payload, &card); err != nil {
		return PostCard{}, fmt.Errorf("Card: unmarshal: %w", err)
	}
	return card, nil
}

// LatestForKeyword returns the newest cached card for a keyword. Returns
// entity.ErrNotFound when the keyword has no live card.
func (c *PostCardCache) LatestForKeyword(ctx context.Context, keywordID int64) (PostCard, error) {
	postID, err := c.client.Get(ctx, latestKey(keywordID)).Int64()
	if errors.Is(err, redis.Nil) {
		return PostCard{}, entity.ErrNotFound
	}
	if err != nil {
		return PostCard{}, fmt.Errorf("LatestForKeyword: %w", err)
	}
	return c.Card(ctx, postID)
}
