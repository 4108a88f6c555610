package service

import (
	"context"
	"errors"
	"testing"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
)

func TestStartupDemotesStrandedRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "e1", Type: data.TypeEpisode, VideoID: "v1", State: data.StateInProgress, Progress: 30})
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "e2", Type: data.TypeEpisode, VideoID: "v2", State: data.StateInProgress, Progress: 80})
	f.eng.active = []string{"e2"}

	if err := f.svc.ReconcileStartup(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	d1, _ := f.repo.Get(ctx, "e1")
	if d1.State != data.StateCreated {
		t.Fatalf("stranded row state = %s", d1.State)
	}
	d2, _ := f.repo.Get(ctx, "e2")
	if d2.State != data.StateInProgress {
		t.Fatalf("running row demoted: %s", d2.State)
	}
	if f.trigger.Count() != 1 {
		t.Fatal("admission not triggered after reconcile")
	}
}

func TestStartupDropsCorruptRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "bad", Type: data.TypeEpisode, State: data.StateCreated}) // no video reference
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "c1", CollectionID: "c1", Type: data.TypeCollection, State: data.StateCreated})

	if err := f.svc.ReconcileStartup(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, err := f.repo.Get(ctx, "bad"); !errors.Is(err, data.ErrNotFound) {
		t.Fatal("corrupt row survived")
	}
	if _, err := f.repo.Get(ctx, "c1"); err != nil {
		t.Fatal("anchor row dropped")
	}
}

func TestStartupEngineUnavailableLeavesRowsAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "e1", Type: data.TypeEpisode, VideoID: "v1", State: data.StateInProgress})
	f.eng.activeFn = func(ctx context.Context) ([]string, error) {
		return nil, errors.New("engine offline")
	}

	if err := f.svc.ReconcileStartup(ctx); err == nil {
		t.Fatal("expected error")
	}
	d, _ := f.repo.Get(ctx, "e1")
	if d.State != data.StateInProgress {
		t.Fatalf("row demoted without engine answer: %s", d.State)
	}
}

func TestVerifyEntitlement(t *testing.T) {
	ctx := context.Background()

	t.Run("grants on download permission", func(t *testing.T) {
		f := newFixture()
		f.content.permsFn = func(ctx context.Context) ([]string, error) {
			return []string{"stream-videos", "download-videos"}, nil
		}
		if err := f.svc.VerifyEntitlement(ctx); err != nil {
			t.Fatalf("verify: %v", err)
		}
		if allowed, _ := f.settings.DownloadsAllowed(ctx); !allowed {
			t.Fatal("entitlement not granted")
		}
	})

	t.Run("revokes when permission absent", func(t *testing.T) {
		f := newFixture()
		_ = f.settings.SetDownloadsAllowed(ctx, true)
		f.content.permsFn = func(ctx context.Context) ([]string, error) {
			return []string{"stream-videos"}, nil
		}
		_ = f.svc.VerifyEntitlement(ctx)
		if allowed, _ := f.settings.DownloadsAllowed(ctx); allowed {
			t.Fatal("entitlement kept without permission")
		}
	})

	t.Run("fails closed on any error", func(t *testing.T) {
		f := newFixture()
		_ = f.settings.SetDownloadsAllowed(ctx, true)
		f.content.permsFn = func(ctx context.Context) ([]string, error) {
			return nil, errors.New("timeout")
		}
		if err := f.svc.VerifyEntitlement(ctx); err == nil {
			t.Fatal("expected error")
		}
		if allowed, _ := f.settings.DownloadsAllowed(ctx); allowed {
			t.Fatal("entitlement kept after failed check")
		}
	})
}

// TestQueueWalkthrough runs the end-to-end scenario: request a collection,
// drain it via engine callbacks, lose the process mid-transfer, recover,
// and remove everything.
func TestQueueWalkthrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	withCollectionC1(f)

	// request collection -> 4 Created rows
	if err := f.svc.Request(ctx, data.DownloadRequest{ContentID: "c1"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if rows, _ := f.repo.List(ctx); len(rows) != 4 {
		t.Fatalf("rows = %d", len(rows))
	}

	// admission picks e1; engine acks and completes it
	f.svc.Admit(ctx)
	if f.eng.started[len(f.eng.started)-1] != "e1" {
		t.Fatalf("first admitted = %v", f.eng.started)
	}
	f.svc.HandleEvent(ctx, engine.Event{ID: "e1", Type: engine.EventStarted})
	f.svc.HandleEvent(ctx, engine.Event{ID: "e1", Type: engine.EventCompleted})
	d, _ := f.repo.Get(ctx, "e1")
	if d.State != data.StateCompleted || d.Progress != 100 {
		t.Fatalf("e1 = %#v", d)
	}

	// the completion chained a trigger; run the drain pass it requested
	f.svc.Admit(ctx)
	if f.eng.started[len(f.eng.started)-1] != "e2" {
		t.Fatalf("second admitted = %v", f.eng.started)
	}
	f.svc.HandleEvent(ctx, engine.Event{ID: "e2", Type: engine.EventStarted})

	// invariant: never two rows InProgress
	assertSingleFlight(t, f)

	// pause, then resume e2
	if err := f.svc.Pause(ctx, "e2"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.svc.Resume(ctx, "e2"); err != nil {
		t.Fatalf("resume: %v", err)
	}

	// process restart while e2 mid-transfer, engine state lost
	f.eng.active = nil
	if err := f.svc.ReconcileStartup(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	d, _ = f.repo.Get(ctx, "e2")
	if d.State != data.StateCreated {
		t.Fatalf("e2 after restart = %s", d.State)
	}

	// recovery: e2 re-admitted, runs to completion; e3 follows and fails
	f.svc.Admit(ctx)
	f.svc.HandleEvent(ctx, engine.Event{ID: "e2", Type: engine.EventStarted})
	f.svc.HandleEvent(ctx, engine.Event{ID: "e2", Type: engine.EventCompleted})
	f.svc.Admit(ctx)
	f.svc.HandleEvent(ctx, engine.Event{ID: "e3", Type: engine.EventStarted})
	f.svc.HandleEvent(ctx, engine.Event{ID: "e3", Type: engine.EventFailed, Progress: 12, Reason: data.FailureNetwork})

	// queue idle: nothing left to admit
	startedBefore := len(f.eng.started)
	f.svc.Admit(ctx)
	if len(f.eng.started) != startedBefore {
		t.Fatal("admission started something on an idle queue")
	}

	// derived collection state: e3 failed, so not completed
	st, err := f.svc.CollectionStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State == data.StateCompleted || st.Done != 2 || st.Total != 3 {
		t.Fatalf("aggregate = %#v", st)
	}

	// remove the collection twice; second pass is a no-op
	if err := f.svc.Remove(ctx, "c1", ""); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rows, _ := f.repo.List(ctx); len(rows) != 0 {
		t.Fatalf("rows left: %#v", rows)
	}
	cancels := len(f.eng.cancelled)
	if cancels != 4 {
		t.Fatalf("cancels = %d", cancels)
	}
	_ = f.svc.Remove(ctx, "c1", "")
	if len(f.eng.cancelled) != cancels {
		t.Fatal("second remove issued engine commands")
	}
}

func assertSingleFlight(t *testing.T, f *fixture) {
	t.Helper()
	rows, _ := f.repo.List(context.Background())
	inProgress := 0
	for _, d := range rows {
		if d.State == data.StateInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		t.Fatalf("%d rows InProgress at once", inProgress)
	}
}
