package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// Delete removes the engagement's mirror structure. The customer group is
// deleted whole when this was its only engagement; otherwise only the
// engagement group goes, and the customer keeps its other engagements.
func (s *Service) Delete(ctx context.Context, e *domain.Engagement) error {
	root, err := s.mirrorRoot(ctx)
	if err != nil {
		return fmt.Errorf("mirror delete %s: %w", e.UUID, err)
	}

	full := root.FullPath + "/" + gitlab.Slug(e.CustomerName) + "/" + gitlab.Slug(e.Name)
	engGroup, err := s.git.GetGroupByFullPath(ctx, full)
	if err != nil {
		return fmt.Errorf("mirror delete %s: %w", e.UUID, err)
	}
	if engGroup == nil {
		s.log.WarnContext(ctx, "mirror structure already gone",
			slog.String("uuid", e.UUID), slog.String("path", full))
		return nil
	}

	siblings, err := s.git.ListSubgroups(ctx, engGroup.ParentID)
	if err != nil {
		return fmt.Errorf("mirror delete %s: %w", e.UUID, err)
	}

	target := engGroup.ID
	if len(siblings) == 1 {
		target = engGroup.ParentID
	}
	if err := s.git.DeleteGroup(ctx, target); err != nil {
		return fmt.Errorf("mirror delete %s: %w", e.UUID, err)
	}

	s.log.InfoContext(ctx, "mirror structure removed",
		slog.String("uuid", e.UUID),
		slog.String("path", full),
		slog.Bool("customer_group_removed", len(siblings) == 1),
	)
	return nil
}
