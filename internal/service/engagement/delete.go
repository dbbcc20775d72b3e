package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// Delete removes an engagement and its category view rows, then signals the
// mirror to drop the corresponding group(s). Launched engagements cannot be
// deleted.
func (s *Service) Delete(ctx context.Context, uuid string) error {
	e, err := s.repo.GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if e.Launch != nil {
		return fmt.Errorf("engagement %s is launched and cannot be deleted: %w", uuid, domain.ErrConflict)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categories.DeleteByEngagement(txCtx, uuid); err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}
		if err := s.repo.Delete(txCtx, uuid); err != nil {
			return fmt.Errorf("delete engagement: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(event.KindEngagementDeleted, e)

	s.log.InfoContext(ctx, "engagement deleted",
		slog.String("uuid", uuid),
		slog.String("customer", e.CustomerName),
		slog.String("name", e.Name),
	)
	return nil
}
