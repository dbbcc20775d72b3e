package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
	"github.com/guildworks/engagements/pkg/ctxutil"
)

// Create validates and persists a new engagement, then signals the mirror.
// The (customer, name) pair must be unique; identity, timestamps and the
// creator record are assigned here, never taken from the caller.
func (s *Service) Create(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error) {
	e.Clean()
	if err := e.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.IsNameTaken(ctx, e.CustomerName, e.Name, "")
	if err != nil {
		return nil, fmt.Errorf("check name: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("engagement %s/%s already exists: %w", e.CustomerName, e.Name, domain.ErrConflict)
	}

	now := s.now()
	if a, ok := ctxutil.AuthorFromCtx(ctx); ok {
		e.LastUpdateByName = a.Name
		e.LastUpdateByEmail = a.Email
	}

	e.UUID = uuid.NewString()
	e.ProjectID = 0
	e.Launch = nil
	e.CreationDetails = nil
	reconcileUseCases(nil, e.UseCases, now)
	e.UpdateTimestamps(now)
	if err := e.SetCreator(); err != nil {
		return nil, err
	}
	e.CurrentState = e.State(now)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, e); err != nil {
			return fmt.Errorf("create engagement: %w", err)
		}
		if err := s.categories.ReplaceForEngagement(txCtx, e.UUID, categoryRows(e, now)); err != nil {
			return fmt.Errorf("project categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(event.KindEngagementCreated, e)

	s.log.InfoContext(ctx, "engagement created",
		slog.String("uuid", e.UUID),
		slog.String("customer", e.CustomerName),
		slog.String("name", e.Name),
	)
	return e, nil
}
