package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// Refresh reloads engagement snapshots from the mirror into the primary
// store. With no uuids it is a full resynchronization: everything local is
// purged and replaced. With uuids only those records are reloaded, the rest
// stay untouched. Returns how many engagements were (re)loaded.
func (s *Service) Refresh(ctx context.Context, uuids []string) (int, error) {
	loaded, err := s.mirror.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load mirror snapshots: %w", err)
	}

	if len(uuids) > 0 {
		keep := make(map[string]bool, len(uuids))
		for _, id := range uuids {
			keep[id] = true
		}
		filtered := loaded[:0]
		for _, e := range loaded {
			if keep[e.UUID] {
				filtered = append(filtered, e)
			}
		}
		loaded = filtered
	}

	now := s.now()
	for _, e := range loaded {
		e.CurrentState = e.State(now)
	}

	full := len(uuids) == 0
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if full {
			if err := s.categories.Purge(txCtx); err != nil {
				return fmt.Errorf("purge categories: %w", err)
			}
			if err := s.repo.Purge(txCtx); err != nil {
				return fmt.Errorf("purge engagements: %w", err)
			}
		} else {
			for _, e := range loaded {
				if err := s.categories.DeleteByEngagement(txCtx, e.UUID); err != nil {
					return fmt.Errorf("clear categories %s: %w", e.UUID, err)
				}
				if err := s.repo.Delete(txCtx, e.UUID); err != nil && !errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("clear engagement %s: %w", e.UUID, err)
				}
			}
		}

		if err := s.repo.PersistAll(txCtx, loaded); err != nil {
			return fmt.Errorf("persist snapshots: %w", err)
		}
		for _, e := range loaded {
			if err := s.categories.ReplaceForEngagement(txCtx, e.UUID, categoryRows(e, now)); err != nil {
				return fmt.Errorf("project categories %s: %w", e.UUID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, e := range loaded {
		s.RefreshCounts(ctx, e.UUID)
	}

	// Category checklists in the mirror may lag behind the snapshots that
	// were just persisted; nudge the synchronizer to reconcile them.
	s.bus.Publish(event.KindCategoriesRefresh, nil)

	s.log.InfoContext(ctx, "refreshed from mirror",
		slog.Int("engagements", len(loaded)),
		slog.Bool("full", full),
	)
	return len(loaded), nil
}

// RefreshCounts pulls the derived participant and artifact counts from the
// auxiliary collaborators. A collaborator failure keeps the stored value
// and is logged, never propagated.
func (s *Service) RefreshCounts(ctx context.Context, uuid string) {
	participants, err := s.counts.ParticipantCount(ctx, uuid)
	if err != nil {
		s.log.WarnContext(ctx, "participant count unavailable",
			slog.String("uuid", uuid), slog.Any("error", err))
		participants = nil
	}
	artifacts, err := s.counts.ArtifactCount(ctx, uuid)
	if err != nil {
		s.log.WarnContext(ctx, "artifact count unavailable",
			slog.String("uuid", uuid), slog.Any("error", err))
		artifacts = nil
	}
	if participants == nil && artifacts == nil {
		return
	}

	if err := s.repo.UpdateCounts(ctx, uuid, participants, nil, artifacts); err != nil {
		s.log.WarnContext(ctx, "count update failed",
			slog.String("uuid", uuid), slog.Any("error", err))
	}
}

// SetParticipantCount records a collaborator-pushed participant count.
func (s *Service) SetParticipantCount(ctx context.Context, uuid string, count int) error {
	return s.repo.UpdateCounts(ctx, uuid, &count, nil, nil)
}

// SetArtifactCount records a collaborator-pushed artifact count.
func (s *Service) SetArtifactCount(ctx context.Context, uuid string, count int) error {
	return s.repo.UpdateCounts(ctx, uuid, nil, nil, &count)
}

// TouchLastUpdate bumps the engagement's activity timestamp without writing
// anything else, for collaborators that track activity externally.
func (s *Service) TouchLastUpdate(ctx context.Context, uuid string) error {
	return s.repo.UpdateLastUpdate(ctx, uuid, s.now())
}
