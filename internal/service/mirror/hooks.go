package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
)

// installHooks attaches the configured webhooks to a project. Hooks marked
// as disabled after archive are skipped once the engagement is past. Hook
// failures never fail the surrounding operation.
func (s *Service) installHooks(ctx context.Context, e *domain.Engagement, projectID int) {
	hooks, err := s.config.Get(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "webhook configuration unavailable",
			slog.String("uuid", e.UUID), slog.String("error", err.Error()))
		return
	}

	state := e.State(s.now())
	for _, h := range hooks {
		if state == domain.StatePast && !h.EnabledAfterArchive {
			continue
		}
		if _, err := s.git.CreateProjectHook(ctx, projectID, h.BaseURL, h.PushEvent, h.PushEventsBranchFilter, h.Token); err != nil {
			s.log.WarnContext(ctx, "webhook installation failed",
				slog.String("uuid", e.UUID),
				slog.String("hook", h.Name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// clearHooks removes every webhook currently installed on a project.
func (s *Service) clearHooks(ctx context.Context, projectID int) error {
	hooks, err := s.git.ListProjectHooks(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list hooks of project %d: %w", projectID, err)
	}
	for _, h := range hooks {
		if err := s.git.DeleteProjectHook(ctx, projectID, h.ID); err != nil {
			return fmt.Errorf("delete hook %d of project %d: %w", h.ID, projectID, err)
		}
	}
	return nil
}

// WebhooksRefresh reinstalls the webhook set on every mirrored project
// after the configuration changed. Per-engagement failures are logged and
// the walk continues.
func (s *Service) WebhooksRefresh(ctx context.Context) error {
	engagements, err := s.repo.Find(ctx, domain.EngagementFilter{})
	if err != nil {
		return fmt.Errorf("mirror webhooks refresh: %w", err)
	}

	refreshed := 0
	for _, e := range engagements {
		if e.ProjectID == 0 {
			continue
		}
		if err := s.clearHooks(ctx, e.ProjectID); err != nil {
			s.log.WarnContext(ctx, "webhook refresh failed",
				slog.String("uuid", e.UUID), slog.String("error", err.Error()))
			continue
		}
		s.installHooks(ctx, e, e.ProjectID)
		refreshed++
	}

	s.log.InfoContext(ctx, "webhooks refreshed", slog.Int("projects", refreshed))
	return nil
}
