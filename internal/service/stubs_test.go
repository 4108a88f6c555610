package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/repo"
	"github.com/razeware/offliner/internal/settings"
)

type stubEngine struct {
	mu        sync.Mutex
	started   []string
	paused    []string
	resumed   []string
	cancelled []string
	cancelAll int
	active    []string

	startFn  func(ctx context.Context, d *data.Download) error
	activeFn func(ctx context.Context) ([]string, error)
}

func (e *stubEngine) Start(ctx context.Context, d *data.Download) error {
	e.mu.Lock()
	e.started = append(e.started, d.ID)
	e.mu.Unlock()
	if e.startFn != nil {
		return e.startFn(ctx, d)
	}
	return nil
}

func (e *stubEngine) Pause(ctx context.Context, d *data.Download) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = append(e.paused, d.ID)
	return nil
}

func (e *stubEngine) Resume(ctx context.Context, d *data.Download) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumed = append(e.resumed, d.ID)
	return nil
}

func (e *stubEngine) Cancel(ctx context.Context, d *data.Download) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, d.ID)
	return nil
}

func (e *stubEngine) CancelAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelAll++
	return nil
}

func (e *stubEngine) ActiveIDs(ctx context.Context) ([]string, error) {
	if e.activeFn != nil {
		return e.activeFn(ctx)
	}
	return e.active, nil
}

type stubContent struct {
	detailFn  func(ctx context.Context, id string) (*data.Content, error)
	resolveFn func(ctx context.Context, videoID string, q data.Quality) (string, error)
	permsFn   func(ctx context.Context) ([]string, error)

	detailCalls  int
	resolveCalls int
}

func (c *stubContent) Detail(ctx context.Context, id string) (*data.Content, error) {
	c.detailCalls++
	if c.detailFn != nil {
		return c.detailFn(ctx, id)
	}
	return nil, data.ErrNotFound
}

func (c *stubContent) ResolveURL(ctx context.Context, videoID string, q data.Quality) (string, error) {
	c.resolveCalls++
	if c.resolveFn != nil {
		return c.resolveFn(ctx, videoID, q)
	}
	return "https://cdn.example.com/" + videoID, nil
}

func (c *stubContent) Permissions(ctx context.Context) ([]string, error) {
	if c.permsFn != nil {
		return c.permsFn(ctx)
	}
	return nil, nil
}

type stubTrigger struct {
	mu    sync.Mutex
	count int
}

func (t *stubTrigger) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
}

func (t *stubTrigger) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

type fixture struct {
	repo     *repo.InMemoryDownloadRepo
	eng      *stubEngine
	content  *stubContent
	settings *settings.InMemoryStore
	trigger  *stubTrigger
	svc      Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		repo:     repo.NewInMemoryDownloadRepo(),
		eng:      &stubEngine{},
		content:  &stubContent{},
		settings: settings.NewInMemoryStore(),
		trigger:  &stubTrigger{},
	}
	// most tests exercise an entitled account; the entitlement tests flip
	// this off themselves
	_ = f.settings.SetDownloadsAllowed(context.Background(), true)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = New(log, f.repo, f.eng, f.content, f.settings, f.trigger)
	return f
}

// collectionC1 is the tree used across the walkthrough tests: collection c1
// with episodes e1, e2, e3.
func collectionC1() *data.Content {
	return &data.Content{
		ID:   "c1",
		Type: data.TypeCollection,
		Name: "Networking Fundamentals",
		Groups: []data.Group{
			{Name: "Part 1", Episodes: []data.Episode{
				{ID: "e1", Name: "Intro", VideoID: "v1"},
				{ID: "e2", Name: "Sockets", VideoID: "v2"},
			}},
			{Name: "Part 2", Episodes: []data.Episode{
				{ID: "e3", Name: "TLS", VideoID: "v3"},
			}},
		},
	}
}

func withCollectionC1(f *fixture) {
	f.content.detailFn = func(ctx context.Context, id string) (*data.Content, error) {
		if id == "c1" {
			return collectionC1(), nil
		}
		return nil, data.ErrNotFound
	}
}
