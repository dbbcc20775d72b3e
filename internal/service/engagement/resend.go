package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// ResendAction names the signal a resend request dispatched.
type ResendAction string

const (
	// ResendCreate rebuilds the whole mirror structure (groups, project,
	// files).
	ResendCreate ResendAction = "create"
	// ResendFiles rewrites the repository files of an existing project.
	ResendFiles ResendAction = "create-files"
	// ResendUpdate pushes a regular update commit.
	ResendUpdate ResendAction = "update"
)

// Resend re-derives what the mirror is missing for an engagement and
// dispatches the matching signal. It never assumes a previous signal was
// delivered: the project and its engagement file are probed directly.
func (s *Service) Resend(ctx context.Context, uuid string) (ResendAction, error) {
	e, err := s.repo.GetByUUID(ctx, uuid)
	if err != nil {
		return "", err
	}
	e.MirrorRetry = true

	action := ResendCreate
	if e.ProjectID != 0 {
		exists, err := s.mirror.ProjectExists(ctx, e.ProjectID)
		if err != nil {
			return "", fmt.Errorf("probe mirror project: %w", err)
		}
		if exists {
			hasFile, err := s.mirror.EngagementFileExists(ctx, e.ProjectID)
			if err != nil {
				return "", fmt.Errorf("probe engagement file: %w", err)
			}
			if hasFile {
				action = ResendUpdate
			} else {
				action = ResendFiles
			}
		}
	}

	switch action {
	case ResendUpdate:
		s.bus.Publish(event.KindEngagementUpdated, e)
	default:
		// A full create with ProjectID already set only rewrites files;
		// with ProjectID zero or a vanished project it rebuilds everything.
		s.bus.Publish(event.KindEngagementCreated, e)
	}

	s.log.InfoContext(ctx, "engagement resent to mirror",
		slog.String("uuid", uuid),
		slog.String("action", string(action)),
	)
	return action, nil
}

// ListNotMirrored returns engagements that never received a mirror project,
// the operator-facing divergence listing.
func (s *Service) ListNotMirrored(ctx context.Context) ([]*domain.Engagement, error) {
	return s.repo.Find(ctx, domain.EngagementFilter{MissingProject: true})
}
