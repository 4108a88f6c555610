// Package service implements the download orchestrator: content expansion,
// admission, event handling, removal, pause/resume, and the reconciliation
// passes. The repository is the single source of truth; every stage is safe
// to resume after a process kill before or after it runs.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
	"github.com/razeware/offliner/internal/repo"
	"github.com/razeware/offliner/internal/settings"
)

// ContentClient is the read-only content repository collaborator.
type ContentClient interface {
	Detail(ctx context.Context, id string) (*data.Content, error)
	ResolveURL(ctx context.Context, videoID string, q data.Quality) (string, error)
	Permissions(ctx context.Context) ([]string, error)
}

// AdmissionTrigger requests an asynchronous admission pass. Triggering is
// cheap and never blocks; bursts collapse into one pass.
type AdmissionTrigger interface {
	Trigger()
}

// Orchestrator is the queue's public surface.
type Orchestrator interface {
	Request(ctx context.Context, req data.DownloadRequest) error
	Admit(ctx context.Context)
	HandleEvent(ctx context.Context, ev engine.Event)
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Remove(ctx context.Context, contentID, episodeID string) error
	RemoveAll(ctx context.Context) error
	ReconcileStartup(ctx context.Context) error
	VerifyEntitlement(ctx context.Context) error

	List(ctx context.Context) (data.Downloads, error)
	Get(ctx context.Context, id string) (*data.Download, error)
	CollectionStatus(ctx context.Context, id string) (data.CollectionStatus, error)
}

type orchestrator struct {
	repo     repo.DownloadRepo
	eng      engine.Engine
	content  ContentClient
	settings settings.Store
	trigger  AdmissionTrigger
	log      *slog.Logger
	now      func() time.Time
}

func New(log *slog.Logger, r repo.DownloadRepo, eng engine.Engine, cc ContentClient, st settings.Store, trig AdmissionTrigger) Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &orchestrator{
		repo:     r,
		eng:      eng,
		content:  cc,
		settings: st,
		trigger:  trig,
		log:      log,
		now:      time.Now,
	}
}

func (s *orchestrator) List(ctx context.Context) (data.Downloads, error) {
	return s.repo.List(ctx)
}

func (s *orchestrator) Get(ctx context.Context, id string) (*data.Download, error) {
	return s.repo.Get(ctx, id)
}

// CollectionStatus derives a collection's aggregate state from its episode
// rows on every read; nothing aggregate is ever stored.
func (s *orchestrator) CollectionStatus(ctx context.Context, id string) (data.CollectionStatus, error) {
	rows, err := s.repo.ListByCollection(ctx, id)
	if err != nil {
		return data.CollectionStatus{}, err
	}
	constituents := make(data.Downloads, 0, len(rows))
	for _, d := range rows {
		if d.ID == id {
			continue // the anchor row is not a constituent
		}
		constituents = append(constituents, d)
	}
	return data.Reduce(id, constituents), nil
}
