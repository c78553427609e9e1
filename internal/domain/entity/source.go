package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// Source platform identifiers.
const (
	SourcePlatformNews  = "news"
	SourcePlatformVideo = "video"
)

// Source represents a news article or video backing a keyword.
// Its identity is the fingerprint of the normalized URL; inserting a fingerprint
// that already exists is a no-op, never an error.
type Source struct {
	Fingerprint   string
	NormalizedURL string
	Title         string
	Description   string
	ThumbnailURL  string // may be filled asynchronously after creation
	PublishedAt   time.Time
	Platform      string
	VideoID       string // video sources only
	CreatedAt     time.Time
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	if s.Fingerprint == "" {
		return &ValidationError{Field: "fingerprint", Message: "fingerprint is empty"}
	}
	if s.NormalizedURL == "" {
		return &ValidationError{Field: "normalized_url", Message: "normalized URL is empty"}
	}
	if s.Platform != SourcePlatformNews && s.Platform != SourcePlatformVideo {
		return &ValidationError{Field: "platform", Message: "platform must be news or video"}
	}
	if s.Platform == SourcePlatformVideo && s.VideoID == "" {
		return &ValidationError{Field: "video_id", Message: "video sources require a video id"}
	}
	return nil
}

// KeywordSource links a keyword to a source. The (KeywordID, Fingerprint) pair is
// unique and inserts are idempotent.
type KeywordSource struct {
	KeywordID   int64
	Fingerprint string
}

// trackingParams are query parameters stripped during URL normalization because they
// vary per visitor without changing the content identity.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"igshid":  true,
	"msclkid": true,
	"ref":     true,
}

// NormalizeURL canonicalizes a source URL for fingerprinting: lowercased scheme and
// host, fragment removed, tracking parameters stripped, trailing slash trimmed.
// Returns the input unchanged if it cannot be parsed.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if trackingParams[param] || strings.HasPrefix(param, "utm_") {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Fingerprint returns the content-address hash of a normalized URL. It is the
// primary key and dedup key for sources.
func Fingerprint(normalizedURL string) string {
	sum := sha256.Sum256([]byte(normalizedURL))
	return hex.EncodeToString(sum[:16])
}

// VideoWatchURL builds the canonical watch URL for a video id. Video fingerprints
// are derived from this URL so the same video always dedups to one source.
func VideoWatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
