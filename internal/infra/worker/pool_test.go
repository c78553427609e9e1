package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 8, slog.Default())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := p.Submit("count", func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		})
		if !ok {
			t.Fatal("Submit returned false with spare capacity")
		}
	}
	wg.Wait()

	if got := ran.Load(); got != 5 {
		t.Errorf("ran=%d, want 5", got)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown err=%v", err)
	}
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1, slog.Default())

	block := make(chan struct{})
	// Occupy the single worker.
	p.Submit("blocker", func(context.Context) { <-block })
	// Fill the queue.
	p.Submit("queued", func(context.Context) {})

	// Wait for the blocker to be picked up so the queue slot is stable.
	time.Sleep(50 * time.Millisecond)

	dropped := false
	for i := 0; i < 3; i++ {
		if !p.Submit("overflow", func(context.Context) {}) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Error("expected at least one submission to be dropped")
	}
	if p.Dropped() == 0 {
		t.Error("Dropped()=0, want > 0")
	}

	close(block)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown err=%v", err)
	}
}

func TestPoolShutdownRejectsNewTasks(t *testing.T) {
	p := NewPool(1, 4, slog.Default())
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}

	if p.Submit("late", func(context.Context) {}) {
		t.Error("Submit after Shutdown returned true")
	}

	// Second shutdown is a no-op.
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown err=%v", err)
	}
}

func TestPoolShutdownTimeout(t *testing.T) {
	p := NewPool(1, 1, slog.Default())

	release := make(chan struct{})
	p.Submit("slow", func(ctx context.Context) {
		select {
		case <-release:
		case <-ctx.Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Shutdown(ctx); err == nil {
		t.Error("expected timeout error from Shutdown")
	}
	close(release)
}
