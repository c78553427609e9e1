package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sampleReport() *RunReport {
	return &RunReport{
		Status:            "partial",
		StartedAt:         time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC),
		Duration:          42 * time.Second,
		Keywords:          10,
		NewKeywords:       3,
		SourcesDiscovered: 27,
		PostsCreated:      4,
		StageFailures:     []string{"search: video search unavailable"},
	}
}

func TestDiscordNotifyRunReport(t *testing.T) {
	var payload DiscordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    2 * time.Second,
	})

	if err := n.NotifyRunReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("NotifyRunReport err=%v", err)
	}

	if len(payload.Embeds) != 1 {
		t.Fatalf("len(embeds)=%d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Title != "Trend pipeline run: partial" {
		t.Errorf("Title=%q", embed.Title)
	}
	if embed.Color != colorYellow {
		t.Errorf("Color=%d, want yellow for partial", embed.Color)
	}
	if !strings.Contains(embed.Description, "Keywords: 10 (3 new)") {
		t.Errorf("Description missing keyword counts: %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "video search unavailable") {
		t.Errorf("Description missing stage failure: %q", embed.Description)
	}
}

func TestDiscordNotifyRunReport_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"Invalid Webhook Token","code":50027}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: 2 * time.Second})

	err := n.NotifyRunReport(context.Background(), sampleReport())
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls=%d, want 1 (4xx must not be retried)", got)
	}
}

func TestDiscordNotifyRunReport_RateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"rate limited","retry_after":0.05}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: 2 * time.Second})

	start := time.Now()
	if err := n.NotifyRunReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("NotifyRunReport err=%v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("elapsed=%v, expected retry_after backoff before second attempt", elapsed)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls=%d, want 2", got)
	}
}

func TestStatusColor(t *testing.T) {
	if statusColor("success") != colorGreen {
		t.Error("success should map to green")
	}
	if statusColor("partial") != colorYellow {
		t.Error("partial should map to yellow")
	}
	if statusColor("failure") != colorRed {
		t.Error("failure should map to red")
	}
}
