package service

import (
	"context"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
)

// HandleEvent reconciles an engine callback into row state. It is the only
// writer of InProgress and the terminal states, and every terminal write
// re-triggers admission so the queue drains without polling.
func (s *orchestrator) HandleEvent(ctx context.Context, ev engine.Event) {
	switch ev.Type {
	case engine.EventStarted:
		d, err := s.repo.Get(ctx, ev.ID)
		if err != nil {
			s.log.Error("event: get", "id", ev.ID, "err", err)
			return
		}
		if d.State != data.StateCreated && d.State != data.StatePaused {
			s.log.Info("ignoring stale start event", "id", ev.ID, "state", string(d.State))
			return
		}
		if _, err := s.repo.Update(ctx, ev.ID, func(dl *data.Download) error {
			dl.State = data.StateInProgress
			return nil
		}); err != nil {
			s.log.Error("event: mark in progress", "id", ev.ID, "err", err)
		}

	case engine.EventProgress:
		if _, err := s.repo.Update(ctx, ev.ID, func(dl *data.Download) error {
			dl.Progress = clampProgress(ev.Progress)
			return nil
		}); err != nil {
			s.log.Error("event: progress", "id", ev.ID, "err", err)
		}

	case engine.EventPaused:
		d, err := s.repo.Get(ctx, ev.ID)
		if err != nil {
			s.log.Error("event: get", "id", ev.ID, "err", err)
			return
		}
		if d.State.Terminal() {
			s.log.Info("ignoring stale pause event", "id", ev.ID, "state", string(d.State))
			return
		}
		if _, err := s.repo.Update(ctx, ev.ID, func(dl *data.Download) error {
			dl.State = data.StatePaused
			return nil
		}); err != nil {
			s.log.Error("event: paused", "id", ev.ID, "err", err)
		}

	case engine.EventCompleted:
		if _, err := s.repo.Update(ctx, ev.ID, func(dl *data.Download) error {
			dl.State = data.StateCompleted
			dl.Progress = 100
			dl.FailureReason = data.FailureNone
			return nil
		}); err != nil {
			s.log.Error("event: completed", "id", ev.ID, "err", err)
			return
		}
		s.log.Info("download completed", "id", ev.ID)
		s.trigger.Trigger()

	case engine.EventFailed:
		reason := ev.Reason
		if reason == data.FailureNone {
			reason = data.FailureOther
		}
		if _, err := s.repo.Update(ctx, ev.ID, func(dl *data.Download) error {
			dl.State = data.StateFailed
			dl.Progress = clampProgress(ev.Progress)
			dl.FailureReason = reason
			return nil
		}); err != nil {
			s.log.Error("event: failed", "id", ev.ID, "err", err)
			return
		}
		s.log.Warn("download failed", "id", ev.ID, "reason", string(reason))
		s.trigger.Trigger()

	case engine.EventRemoving:
		// transient; the terminal callback follows

	default:
		s.log.Warn("unknown event type", "id", ev.ID, "type", string(ev.Type))
	}
}

// Pause stops an active transfer and marks the row Paused. The store write
// lands before the engine command so the UI reflects the pause immediately;
// partial bytes stay with the engine for resume.
func (s *orchestrator) Pause(ctx context.Context, id string) error {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch d.State {
	case data.StatePaused:
		return nil
	case data.StateInProgress:
	default:
		return data.ErrBadState
	}
	updated, err := s.repo.Update(ctx, id, func(dl *data.Download) error {
		dl.State = data.StatePaused
		return nil
	})
	if err != nil {
		return err
	}
	return s.eng.Pause(ctx, updated)
}

// Resume returns a paused row to InProgress and tells the engine to
// continue from its partial bytes.
func (s *orchestrator) Resume(ctx context.Context, id string) error {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch d.State {
	case data.StateInProgress:
		return nil
	case data.StatePaused:
	default:
		return data.ErrBadState
	}
	updated, err := s.repo.Update(ctx, id, func(dl *data.Download) error {
		dl.State = data.StateInProgress
		return nil
	})
	if err != nil {
		return err
	}
	return s.eng.Resume(ctx, updated)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
