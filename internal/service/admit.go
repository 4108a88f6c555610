package service

import (
	"context"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/metrics"
)

// admitLimit caps concurrent transfers. Bandwidth and disk I/O are shared
// resources on the device, and a cap of one gives the UI an unambiguous
// "downloading now" row without a priority scheduler.
const admitLimit = 1

// Admit drains the queue: it picks the oldest Created rows up to the cap,
// resolves a transfer URL for each, and hands them to the engine. The row
// stays Created until the engine acknowledges with a Started event.
//
// A URL-resolution failure aborts the remaining batch for this pass (rows
// already handed off are unaffected) and the row is retried on the next
// pass. With the cap at 1 the abort is indistinguishable from skipping the
// item; keep the fail-fast behavior if the cap is ever raised.
//
// Errors are only logged: admission is re-triggered by every request and
// terminal event, so nothing is lost by returning early.
func (s *orchestrator) Admit(ctx context.Context) {
	metrics.AdmissionPasses.Inc()

	running, err := s.repo.ListByState(ctx, data.StateInProgress, admitLimit)
	if err != nil {
		s.log.Error("admission: list running rows", "err", err)
		return
	}
	// A paused transfer keeps its slot: its partial bytes sit with the
	// engine, and resuming it must not collide with a row admitted in the
	// meantime.
	paused, err := s.repo.ListByState(ctx, data.StatePaused, admitLimit)
	if err != nil {
		s.log.Error("admission: list paused rows", "err", err)
		return
	}
	capacity := admitLimit - len(running) - len(paused)
	if capacity <= 0 {
		return
	}

	rows, err := s.repo.ListByState(ctx, data.StateCreated, capacity)
	if err != nil {
		s.log.Error("admission: list created rows", "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	quality, err := s.settings.Quality(ctx)
	if err != nil {
		s.log.Error("admission: read quality", "err", err)
		return
	}

	for _, d := range rows {
		url, err := s.content.ResolveURL(ctx, d.VideoID, quality)
		if err != nil {
			s.log.Warn("admission: resolve url", "id", d.ID, "video", d.VideoID, "err", err)
			return
		}
		updated, err := s.repo.Update(ctx, d.ID, func(dl *data.Download) error {
			dl.URL = url
			return nil
		})
		if err != nil {
			s.log.Error("admission: persist url", "id", d.ID, "err", err)
			return
		}
		if err := s.eng.Start(ctx, updated); err != nil {
			s.log.Error("admission: engine start", "id", d.ID, "err", err)
			return
		}
		s.log.Info("admitted", "id", d.ID, "quality", string(quality))
	}
}
