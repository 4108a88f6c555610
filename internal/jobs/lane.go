// Package jobs holds the small scheduling primitives the orchestrator runs
// on: a single-slot trigger lane and a periodic runner. Both are plain
// goroutine loops; persisted queue state lives in the repository, so a
// process kill between runs loses nothing.
package jobs

import (
	"context"
	"sync"
	"time"
)

// Lane serializes a unit of work behind a depth-1 trigger slot. Trigger
// never blocks: while a trigger is pending and not yet started, further
// triggers coalesce into it (latest wins). This collapses bursts of
// completion callbacks into one effective drain pass.
type Lane struct {
	trigger chan struct{}

	mu      sync.Mutex
	started bool
}

func NewLane() *Lane {
	return &Lane{trigger: make(chan struct{}, 1)}
}

// Trigger requests a run. It is safe from any goroutine and never blocks.
func (l *Lane) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
		// a pass is already pending; it will observe this work
	}
}

// Run drains triggers into fn serially until ctx is cancelled. At most one
// invocation of fn is in flight at any time. Run must be called once.
func (l *Lane) Run(ctx context.Context, fn func(context.Context)) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		panic("jobs: Lane.Run called twice")
	}
	l.started = true
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.trigger:
			fn(ctx)
		}
	}
}

// Periodic runs fn immediately and then on every tick of the interval until
// ctx is cancelled.
func Periodic(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}
