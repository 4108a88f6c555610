package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerNeverBlocks(t *testing.T) {
	l := NewLane()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			l.Trigger()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked")
	}
}

func TestBurstCoalesces(t *testing.T) {
	l := NewLane()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Run(ctx, func(context.Context) {
			runs.Add(1)
			<-release
		})
	}()

	// first trigger starts a pass; the rest arrive while it is running and
	// must collapse into exactly one follow-up pass
	l.Trigger()
	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 50; i++ {
		l.Trigger()
	}
	release <- struct{}{}
	for runs.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	release <- struct{}{}

	// give any spurious extra passes a chance to show up
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2", got)
	}
	cancel()
	close(release)
	wg.Wait()
}

func TestRunStopsOnCancel(t *testing.T) {
	l := NewLane()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx, func(context.Context) {})
		close(stopped)
	}()
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPeriodicRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		Periodic(ctx, time.Hour, func(context.Context) { runs.Add(1) })
		close(done)
	}()
	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Periodic did not stop")
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d", runs.Load())
	}
}
