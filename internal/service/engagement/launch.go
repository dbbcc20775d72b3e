package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
	"github.com/guildworks/engagements/pkg/ctxutil"
)

// Launch records the one-time launch of an engagement and pushes the
// launch commit through the regular update signal. A second launch attempt
// is a conflict.
func (s *Service) Launch(ctx context.Context, uuid string) (*domain.Engagement, error) {
	e, err := s.repo.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if e.Launch != nil {
		return nil, fmt.Errorf("engagement %s is already launched: %w", uuid, domain.ErrConflict)
	}

	now := s.now()
	launch := &domain.Launch{LaunchedDateTime: &now}
	if a, ok := ctxutil.AuthorFromCtx(ctx); ok {
		launch.LaunchedBy = a.Name
		launch.LaunchedByEmail = a.Email
		e.LastUpdateByName = a.Name
		e.LastUpdateByEmail = a.Email
	}
	e.Launch = launch
	e.LastMessage = domain.LaunchMessage
	e.UpdateTimestamps(now)
	e.CurrentState = e.State(now)

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("launch engagement: %w", err)
	}

	s.bus.Publish(event.KindEngagementUpdated, e)

	s.log.InfoContext(ctx, "engagement launched",
		slog.String("uuid", e.UUID),
		slog.String("launched_by", launch.LaunchedBy),
	)
	return e, nil
}
