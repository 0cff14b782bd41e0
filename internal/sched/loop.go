package sched

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// TicksPerSecond is the nominal primary loop rate. Timers are expressed in ticks.
const TicksPerSecond = 20

// DefaultTickInterval is the wall-clock duration of one tick at TicksPerSecond.
const DefaultTickInterval = time.Second / TicksPerSecond

// Loop is the primary execution context.
//
// Every player and world mutation happens on the goroutine that runs the loop
// (Run, or the caller of Advance). Post is the only method that may be called
// from other goroutines; Every, After and Task.Cancel must be called on the loop.
type Loop struct {
	interval time.Duration

	mu    sync.Mutex
	queue []func()

	// Owned by the loop goroutine.
	tick   uint64
	nextID uint64
	tasks  map[uint64]*Task
}

// NewLoop creates a loop that ticks every interval (DefaultTickInterval if <= 0).
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Loop{
		interval: interval,
		tasks:    make(map[uint64]*Task),
	}
}

// Task is a timer scheduled on a Loop.
type Task struct {
	id        uint64
	next      uint64
	period    uint64 // 0 = one-shot
	fn        func()
	loop      *Loop
	cancelled bool
}

// Cancel stops future runs. Safe to call more than once and from inside fn.
func (t *Task) Cancel() {
	if t == nil || t.cancelled {
		return
	}
	t.cancelled = true
	delete(t.loop.tasks, t.id)
}

// Cancelled reports whether the task was cancelled or has finished (one-shot).
func (t *Task) Cancelled() bool {
	return t.cancelled
}

// Post queues fn to run on the loop at the start of the next tick.
// Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

// After runs fn once, delay ticks from now (minimum 1).
func (l *Loop) After(delay int, fn func()) *Task {
	return l.schedule(delay, 0, fn)
}

// Every runs fn after delay ticks and then every period ticks until cancelled.
func (l *Loop) Every(delay, period int, fn func()) *Task {
	if period < 1 {
		period = 1
	}
	return l.schedule(delay, period, fn)
}

func (l *Loop) schedule(delay, period int, fn func()) *Task {
	if delay < 1 {
		delay = 1
	}
	l.nextID++
	t := &Task{
		id:     l.nextID,
		next:   l.tick + uint64(delay),
		period: uint64(period),
		fn:     fn,
		loop:   l,
	}
	l.tasks[t.id] = t
	return t
}

// CurrentTick returns the number of ticks processed so far.
func (l *Loop) CurrentTick() uint64 {
	return l.tick
}

// Pending returns the number of scheduled timers.
func (l *Loop) Pending() int {
	return len(l.tasks)
}

// Run ticks the loop until ctx is cancelled (blocks).
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Info("primary loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("primary loop stopping", "tick", l.tick)
			return ctx.Err()
		case <-ticker.C:
			l.step()
		}
	}
}

// Advance runs n ticks synchronously on the calling goroutine.
// Used by tests and offline tools instead of Run; never call both.
func (l *Loop) Advance(n int) {
	for range n {
		l.step()
	}
}

// Drain runs posted callbacks until the queue is empty without advancing time.
func (l *Loop) Drain() {
	for {
		fns := l.takeQueue()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			l.safeCall(fn)
		}
	}
}

func (l *Loop) step() {
	for _, fn := range l.takeQueue() {
		l.safeCall(fn)
	}

	l.tick++

	// Collect due tasks first: callbacks may schedule or cancel timers.
	var due []*Task
	for _, t := range l.tasks {
		if t.next <= l.tick {
			due = append(due, t)
		}
	}
	// Map order is random; keep insertion order.
	slices.SortFunc(due, func(a, b *Task) int { return cmp.Compare(a.id, b.id) })

	for _, t := range due {
		if t.cancelled {
			continue
		}
		if t.period == 0 {
			t.Cancel()
		} else {
			t.next = l.tick + t.period
		}
		l.safeCall(t.fn)
	}
}

func (l *Loop) takeQueue() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := l.queue
	l.queue = nil
	return fns
}

func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("primary loop task panicked", "panic", r, "tick", l.tick)
		}
	}()
	fn()
}
