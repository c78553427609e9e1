package entity

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://News.Example.COM/article/1",
			want: "https://news.example.com/article/1",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
		{
			name: "strips utm and click ids, keeps real params",
			in:   "https://example.com/a?utm_source=x&utm_medium=y&fbclid=abc&id=42",
			want: "https://example.com/a?id=42",
		},
		{
			name: "trims trailing slash",
			in:   "https://example.com/a/",
			want: "https://example.com/a",
		},
		{
			name: "unparseable input returned trimmed",
			in:   "  not a url  ",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint("https://example.com/a")
	b := Fingerprint("https://example.com/a")
	c := Fingerprint("https://example.com/b")

	if a != b {
		t.Errorf("fingerprint not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("distinct URLs collided: %s", a)
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a))
	}
}

func TestFingerprint_TrackingVariantsDedup(t *testing.T) {
	plain := Fingerprint(NormalizeURL("https://example.com/a"))
	tracked := Fingerprint(NormalizeURL("https://example.com/a?utm_campaign=trend"))
	if plain != tracked {
		t.Error("tracking-parameter variant produced a different fingerprint")
	}
}

func TestVideoWatchURL(t *testing.T) {
	got := VideoWatchURL("dQw4w9WgXcQ")
	if got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("VideoWatchURL = %q", got)
	}
	if !strings.Contains(VideoWatchURL("a&b"), "a%26b") {
		t.Error("video id not escaped")
	}
}

func TestSource_Validate(t *testing.T) {
	valid := Source{
		Fingerprint:   Fingerprint("https://example.com/a"),
		NormalizedURL: "https://example.com/a",
		Platform:      SourcePlatformNews,
		PublishedAt:   time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid source rejected: %v", err)
	}

	video := valid
	video.Platform = SourcePlatformVideo
	if err := video.Validate(); err == nil {
		t.Error("video source without video id accepted")
	}

	badPlatform := valid
	badPlatform.Platform = "podcast"
	if err := badPlatform.Validate(); err == nil {
		t.Error("unknown platform accepted")
	}
}

func TestHourBucket(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	in := time.Date(2025, 3, 1, 14, 37, 12, 0, loc)
	got := HourBucket(in)
	want := time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("HourBucket = %v, want %v", got, want)
	}
}
