package service

import (
	"context"
	"errors"

	"github.com/razeware/offliner/internal/data"
)

// Remove deletes the requested scope: a single episode, a standalone item,
// or a whole collection (resolved from the existing rows, never by
// re-fetching content). Rows are deleted before the engine cancels are
// issued so a concurrent admission pass cannot re-pick them and the UI
// reflects removal immediately. Removing a scope that has no rows is a
// no-op.
func (s *orchestrator) Remove(ctx context.Context, contentID, episodeID string) error {
	if contentID == "" && episodeID == "" {
		return s.RemoveAll(ctx)
	}

	var scope data.Downloads
	if episodeID != "" {
		d, err := s.repo.Get(ctx, episodeID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return nil
			}
			return err
		}
		scope = data.Downloads{d}
	} else {
		rows, err := s.repo.ListByCollection(ctx, contentID)
		if err != nil {
			return err
		}
		scope = rows
		if len(scope) == 0 {
			// standalone screencast or single-episode leftover
			d, err := s.repo.Get(ctx, contentID)
			if err != nil {
				if errors.Is(err, data.ErrNotFound) {
					return nil
				}
				return err
			}
			scope = data.Downloads{d}
		}
	}

	for _, d := range scope {
		if err := s.repo.Delete(ctx, d.ID); err != nil && !errors.Is(err, data.ErrNotFound) {
			return err
		}
	}
	// engine cancels are best effort; rows are already gone
	for _, d := range scope {
		if err := s.eng.Cancel(ctx, d); err != nil {
			s.log.Warn("remove: engine cancel", "id", d.ID, "err", err)
		}
	}
	s.log.Info("removed downloads", "count", len(scope))
	return nil
}

// RemoveAll wipes the whole table and issues a global cancel to the engine.
func (s *orchestrator) RemoveAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.eng.CancelAll(ctx); err != nil {
		s.log.Warn("remove all: engine cancel", "err", err)
	}
	s.log.Info("removed all downloads")
	return nil
}
