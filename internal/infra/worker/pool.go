package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool is a bounded background worker pool for fire-and-forget tasks, used
// for thumbnail enrichment so slow page fetches never extend the pipeline
// run. Submissions never block: when the queue is full the task is dropped
// and counted.
type Pool struct {
	logger  *slog.Logger
	tasks   chan poolTask
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	dropped atomic.Int64

	mu     sync.Mutex
	closed bool
}

type poolTask struct {
	name string
	fn   func(context.Context)
}

// NewPool creates and starts a pool with the given number of workers and
// queue capacity.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		logger: logger,
		tasks:  make(chan poolTask, queueSize),
		cancel: cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(ctx)
	}

	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		if ctx.Err() != nil {
			return
		}
		p.run(ctx, task)
	}
}

func (p *Pool) run(ctx context.Context, task poolTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				slog.String("task", task.name),
				slog.Any("panic", r))
		}
	}()
	task.fn(ctx)
}

// Submit enqueues a task for background execution. Returns false when the
// pool is shutting down or the queue is full; the task is dropped in either
// case.
func (p *Pool) Submit(name string, fn func(context.Context)) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}

	select {
	case p.tasks <- poolTask{name: name, fn: fn}:
		p.mu.Unlock()
		return true
	default:
		p.mu.Unlock()
		dropped := p.dropped.Add(1)
		p.logger.Warn("background task dropped, queue full",
			slog.String("task", name),
			slog.Int64("dropped_total", dropped))
		return false
	}
}

// Dropped returns the number of tasks dropped because the queue was full.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Shutdown stops accepting tasks and waits for in-flight and queued tasks to
// finish. When the context expires first, remaining tasks are abandoned by
// cancelling their context.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
}
