package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
)

func seedCreated(f *fixture, id, videoID string, at time.Time) {
	_, _, _ = f.repo.Add(context.Background(), &data.Download{
		ID: id, Type: data.TypeEpisode, VideoID: videoID,
		State: data.StateCreated, CreatedAt: at,
	})
}

func TestAdmitPicksOldestAndStartsEngine(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := time.Now()
	seedCreated(f, "e2", "v2", base.Add(time.Second))
	seedCreated(f, "e1", "v1", base)

	f.svc.Admit(ctx)

	if len(f.eng.started) != 1 || f.eng.started[0] != "e1" {
		t.Fatalf("started = %v", f.eng.started)
	}
	d, _ := f.repo.Get(ctx, "e1")
	if d.URL != "https://cdn.example.com/v1" {
		t.Fatalf("url not persisted: %q", d.URL)
	}
	// admission never writes InProgress; the engine ack does
	if d.State != data.StateCreated {
		t.Fatalf("state = %s", d.State)
	}
}

func TestAdmitUsesQualityPreference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_ = f.settings.SetQuality(ctx, data.QualitySD)
	seedCreated(f, "e1", "v1", time.Now())

	var gotQuality data.Quality
	f.content.resolveFn = func(ctx context.Context, videoID string, q data.Quality) (string, error) {
		gotQuality = q
		return "u", nil
	}
	f.svc.Admit(ctx)
	if gotQuality != data.QualitySD {
		t.Fatalf("quality = %q", gotQuality)
	}
}

func TestAdmitEmptyQueueIsNoOp(t *testing.T) {
	f := newFixture()
	f.svc.Admit(context.Background())
	if len(f.eng.started) != 0 || f.content.resolveCalls != 0 {
		t.Fatal("empty admission had side effects")
	}
}

func TestAdmitSkipsCollectionAnchors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, _ = f.repo.Add(ctx, &data.Download{ID: "c1", CollectionID: "c1", Type: data.TypeCollection, State: data.StateCreated})

	f.svc.Admit(ctx)
	if len(f.eng.started) != 0 {
		t.Fatal("anchor row admitted")
	}
}

func TestAdmitResolutionFailureAbortsPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seedCreated(f, "e1", "v1", time.Now())

	f.content.resolveFn = func(ctx context.Context, videoID string, q data.Quality) (string, error) {
		return "", errors.New("cdn unavailable")
	}
	f.svc.Admit(ctx)

	if len(f.eng.started) != 0 {
		t.Fatal("engine started despite resolution failure")
	}
	d, _ := f.repo.Get(ctx, "e1")
	if d.State != data.StateCreated {
		t.Fatalf("row left in %s, want Created for retry", d.State)
	}

	// next pass retries the same row
	f.content.resolveFn = nil
	f.svc.Admit(ctx)
	if len(f.eng.started) != 1 || f.eng.started[0] != "e1" {
		t.Fatalf("retry pass started = %v", f.eng.started)
	}
}

func TestAdmitHoldsWhileTransferRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, _ = f.repo.Add(ctx, &data.Download{
		ID: "e1", Type: data.TypeEpisode, VideoID: "v1",
		State: data.StateInProgress, CreatedAt: time.Now(),
	})
	seedCreated(f, "e2", "v2", time.Now().Add(time.Second))

	f.svc.Admit(ctx)
	if len(f.eng.started) != 0 {
		t.Fatalf("started %v while e1 still running", f.eng.started)
	}
}

func TestAdmitHoldsWhileTransferPaused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := time.Now()
	seedCreated(f, "e1", "v1", base)
	seedCreated(f, "e2", "v2", base.Add(time.Second))

	// e1 is admitted and acked, then paused by the user
	f.svc.Admit(ctx)
	f.svc.HandleEvent(ctx, engine.Event{ID: "e1", Type: engine.EventStarted})
	if err := f.svc.Pause(ctx, "e1"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// the paused transfer keeps its slot: e2 must not be admitted
	f.svc.Admit(ctx)
	if len(f.eng.started) != 1 {
		t.Fatalf("started = %v while e1 paused", f.eng.started)
	}

	// resuming e1 therefore cannot collide with a second transfer
	if err := f.svc.Resume(ctx, "e1"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	rows, _ := f.repo.List(ctx)
	inProgress := 0
	for _, d := range rows {
		if d.State == data.StateInProgress {
			inProgress++
		}
	}
	if inProgress != 1 {
		t.Fatalf("%d rows InProgress after resume", inProgress)
	}
}

func TestAdmitCapIsOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := time.Now()
	seedCreated(f, "e1", "v1", base)
	seedCreated(f, "e2", "v2", base.Add(time.Second))
	seedCreated(f, "e3", "v3", base.Add(2*time.Second))

	f.svc.Admit(ctx)
	if len(f.eng.started) != 1 {
		t.Fatalf("started %d transfers in one pass", len(f.eng.started))
	}
}
