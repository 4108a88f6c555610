package service

import (
	"context"
	"slices"

	"github.com/razeware/offliner/internal/content"
	"github.com/razeware/offliner/internal/data"
)

// ReconcileStartup aligns persisted state with the engine after a process
// restart. Rows stranded InProgress whose transfer the engine no longer
// runs are demoted to Created so the next admission pass restarts them;
// this is the only path out of a permanently "active" row after a kill
// mid-transfer. Downloadable rows with no video reference cannot ever be
// admitted and are dropped as corrupt. One admission pass is triggered at
// the end regardless.
func (s *orchestrator) ReconcileStartup(ctx context.Context) error {
	defer s.trigger.Trigger()

	active, err := s.eng.ActiveIDs(ctx)
	if err != nil {
		// cannot tell what is running; demoting now could double-start,
		// so leave rows alone until the engine answers
		s.log.Error("reconcile: engine active ids", "err", err)
		return err
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("reconcile: list rows", "err", err)
		return err
	}

	for _, d := range rows {
		if d.Type.Downloadable() && d.VideoID == "" {
			s.log.Warn("reconcile: dropping corrupt row", "id", d.ID)
			if err := s.repo.Delete(ctx, d.ID); err != nil {
				s.log.Error("reconcile: delete corrupt row", "id", d.ID, "err", err)
			}
			continue
		}
		if d.State != data.StateInProgress {
			continue
		}
		if slices.Contains(active, d.ID) {
			continue
		}
		if err := s.repo.SetState(ctx, d.ID, data.StateCreated); err != nil {
			s.log.Error("reconcile: demote row", "id", d.ID, "err", err)
			continue
		}
		s.log.Info("demoted stranded row", "id", d.ID)
	}
	return nil
}

// VerifyEntitlement re-checks download permission against the content
// repository. Any failure revokes the cached flag: granting offline access
// incorrectly is worse than temporarily denying an entitled user.
// Already-completed downloads are never deleted here.
func (s *orchestrator) VerifyEntitlement(ctx context.Context) error {
	perms, err := s.content.Permissions(ctx)
	if err != nil {
		if serr := s.settings.SetDownloadsAllowed(ctx, false); serr != nil {
			s.log.Error("revoke entitlement", "err", serr)
		}
		s.log.Warn("entitlement check failed, revoking", "err", err)
		return err
	}
	allowed := slices.Contains(perms, content.PermissionDownload)
	if err := s.settings.SetDownloadsAllowed(ctx, allowed); err != nil {
		return err
	}
	s.log.Info("entitlement verified", "allowed", allowed)
	return nil
}
