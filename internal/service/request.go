package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/razeware/offliner/internal/data"
)

// Request turns a user download request into queued rows. Re-requesting an
// active row toggles pause, a paused row resumes, a completed row is a
// no-op. A failed row is treated like a fresh request: its row is reset to
// Created and rides the next admission pass.
//
// Content fetch failure leaves no side effects; the caller re-triggers to
// retry.
func (s *orchestrator) Request(ctx context.Context, req data.DownloadRequest) error {
	if req.ContentID == "" {
		return data.ErrMissingContent
	}

	id := req.DownloadID()
	existing, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return err
	}
	if existing != nil {
		switch existing.State {
		case data.StateInProgress:
			return s.Pause(ctx, id)
		case data.StatePaused:
			return s.Resume(ctx, id)
		case data.StateCompleted:
			return nil
		case data.StateCreated:
			// already queued; nudge the drain in case it idled
			s.trigger.Trigger()
			return nil
		}
		// StateFailed falls through and is re-expanded below
	}

	// New enqueues are gated on the cached entitlement flag; rows already
	// queued keep working so a flaky check never wipes progress.
	allowed, err := s.settings.DownloadsAllowed(ctx)
	if err != nil {
		return err
	}
	if !allowed {
		return data.ErrNotEntitled
	}

	c, err := s.content.Detail(ctx, req.ContentID)
	if err != nil {
		return fmt.Errorf("fetch content %s: %w", req.ContentID, err)
	}

	rows, err := expand(c, req)
	if err != nil {
		return err
	}

	if err := s.settings.SetWifiOnly(ctx, req.WifiOnly); err != nil {
		s.log.Error("persist wifi preference", "err", err)
	}

	base := s.now()
	for i, d := range rows {
		// spread creation times so FIFO admission follows document order
		d.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		d.State = data.StateCreated
		stored, inserted, err := s.repo.Add(ctx, d)
		if err != nil {
			return err
		}
		// only the row the request addresses gets the failed-row reset;
		// failed siblings swept into the scope keep their state
		if !inserted && d.ID == id && stored.State == data.StateFailed {
			if _, err := s.repo.Update(ctx, d.ID, func(dl *data.Download) error {
				dl.State = data.StateCreated
				dl.Progress = 0
				dl.FailureReason = data.FailureNone
				return nil
			}); err != nil {
				return err
			}
		}
	}

	s.trigger.Trigger()
	return nil
}

// expand computes the set of rows a request enqueues: the leaf itself for a
// screencast, the episode plus the collection anchor for a single-episode
// request, or every episode in document order plus the anchor for a whole
// collection.
func expand(c *data.Content, req data.DownloadRequest) ([]*data.Download, error) {
	if !c.Type.Downloadable() && c.Type != data.TypeCollection {
		return nil, data.ErrNotDownloadable
	}

	if c.Type != data.TypeCollection {
		return []*data.Download{{
			ID:      c.ID,
			Type:    c.Type,
			Name:    c.Name,
			VideoID: c.VideoID,
		}}, nil
	}

	anchor := &data.Download{
		ID:           c.ID,
		CollectionID: c.ID,
		Type:         data.TypeCollection,
		Name:         c.Name,
	}

	if req.EpisodeID != "" {
		ep, ok := c.Episode(req.EpisodeID)
		if !ok {
			return nil, fmt.Errorf("episode %s not in collection %s: %w", req.EpisodeID, c.ID, data.ErrNotFound)
		}
		return []*data.Download{episodeRow(c.ID, ep), anchor}, nil
	}

	var rows []*data.Download
	for _, ep := range c.Episodes() {
		rows = append(rows, episodeRow(c.ID, ep))
	}
	return append(rows, anchor), nil
}

func episodeRow(collectionID string, ep data.Episode) *data.Download {
	return &data.Download{
		ID:           ep.ID,
		CollectionID: collectionID,
		Type:         data.TypeEpisode,
		Name:         ep.Name,
		VideoID:      ep.VideoID,
	}
}
