package sched

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the background pool size when none is configured.
const DefaultWorkers = 4

// Pool is the background execution context for slow work (location search,
// terrain loading). Jobs must not touch player state; they hand results back to
// the primary Loop with Post.
type Pool struct {
	workers int

	mu      sync.Mutex
	pending []func(ctx context.Context)
	wake    chan struct{}
}

// NewPool creates a pool running at most workers jobs at once.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{
		workers: workers,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues job. It never blocks; jobs submitted before Run starts are kept.
func (p *Pool) Submit(job func(ctx context.Context)) {
	p.mu.Lock()
	p.pending = append(p.pending, job)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Run dispatches queued jobs until ctx is cancelled, then waits for running
// jobs to return (blocks). Jobs receive ctx and should stop early when it is done.
func (p *Pool) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.workers)

	slog.Info("background pool started", "workers", p.workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			slog.Info("background pool stopped", "dropped", p.Queued())
			return ctx.Err()
		case <-p.wake:
		}

		for _, job := range p.take() {
			// Blocks while all workers are busy; only the dispatcher waits here.
			g.Go(func() error {
				p.runJob(ctx, job)
				return nil
			})
		}
	}
}

func (p *Pool) take() []func(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobs := p.pending
	p.pending = nil
	return jobs
}

func (p *Pool) runJob(ctx context.Context, job func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background job panicked", "panic", r)
		}
	}()
	job(ctx)
}
