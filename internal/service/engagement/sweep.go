package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// SweepStates walks every engagement, derives its lifecycle state and
// persists plus signals the ones that moved. Individual failures are
// logged and the sweep continues: a transition must never be dropped
// silently because an unrelated row failed.
func (s *Service) SweepStates(ctx context.Context) error {
	list, err := s.repo.Find(ctx, domain.EngagementFilter{})
	if err != nil {
		return fmt.Errorf("list engagements: %w", err)
	}

	now := s.now()
	transitions := 0
	for _, e := range list {
		next := e.State(now)
		if next == e.CurrentState {
			continue
		}
		changed, err := s.repo.UpdateState(ctx, e.UUID, next)
		if err != nil {
			s.log.ErrorContext(ctx, "state transition not persisted",
				slog.String("uuid", e.UUID),
				slog.String("state", string(next)),
				slog.Any("error", err))
			continue
		}
		if !changed {
			continue
		}
		e.CurrentState = next
		transitions++
		s.bus.Publish(event.KindStateChanged, e)
	}

	if transitions > 0 {
		s.log.InfoContext(ctx, "state sweep complete", slog.Int("transitions", transitions))
	}
	return nil
}

// EnsureSeeded triggers a full refresh from the mirror when the primary
// store is empty, the safety net after a data loss or first deploy.
func (s *Service) EnsureSeeded(ctx context.Context) error {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("count engagements: %w", err)
	}
	if total > 0 {
		return nil
	}

	s.log.WarnContext(ctx, "primary store is empty, refreshing from mirror")
	_, err = s.Refresh(ctx, nil)
	return err
}

// BackfillLastUpdate stamps engagements that predate the last-update column
// using the activity feed, falling back to the current time when the feed
// has nothing for them.
func (s *Service) BackfillLastUpdate(ctx context.Context) error {
	uuids, err := s.repo.ListWithoutLastUpdate(ctx)
	if err != nil {
		return fmt.Errorf("list unstamped engagements: %w", err)
	}

	for _, uuid := range uuids {
		ts, err := s.counts.LastActivity(ctx, uuid)
		if err != nil {
			s.log.WarnContext(ctx, "activity feed unavailable",
				slog.String("uuid", uuid), slog.Any("error", err))
			ts = nil
		}
		stamp := s.now()
		if ts != nil {
			stamp = *ts
		}
		if err := s.repo.UpdateLastUpdate(ctx, uuid, stamp); err != nil {
			s.log.WarnContext(ctx, "last-update backfill failed",
				slog.String("uuid", uuid), slog.Any("error", err))
		}
	}
	return nil
}
