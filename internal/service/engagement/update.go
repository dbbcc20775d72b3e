package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/diff"
	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
	"github.com/guildworks/engagements/pkg/ctxutil"
)

// Update diffs the incoming engagement against the stored one and persists
// it only when something material changed. categoryUpdate lets the category
// service replace the category set; every other caller gets the stored set
// carried over. Returns the persisted record and whether a write happened —
// a no-op update emits no signal.
func (s *Service) Update(ctx context.Context, incoming *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error) {
	incoming.Clean()
	if err := incoming.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByUUID(ctx, incoming.UUID)
	if err != nil {
		return nil, false, err
	}

	taken, err := s.repo.IsNameTaken(ctx, incoming.CustomerName, incoming.Name, existing.UUID)
	if err != nil {
		return nil, false, fmt.Errorf("check name: %w", err)
	}
	if taken {
		return nil, false, fmt.Errorf("engagement %s/%s already exists: %w", incoming.CustomerName, incoming.Name, domain.ErrConflict)
	}

	incoming.OverrideImmutableFields(existing, categoryUpdate)

	now := s.now()
	reconcileUseCases(existing.UseCases, incoming.UseCases, now)

	cs := diff.CompareEngagements(existing, incoming)
	projectAssigned := existing.ProjectID == 0 && incoming.ProjectID != 0
	if !cs.HasChanges() && !projectAssigned {
		return existing, false, nil
	}

	if a, ok := ctxutil.AuthorFromCtx(ctx); ok {
		incoming.LastUpdateByName = a.Name
		incoming.LastUpdateByEmail = a.Email
	}
	if cs.HasChanges() {
		incoming.LastMessage = cs.Describe()
	}
	incoming.UpdateTimestamps(now)
	incoming.CurrentState = incoming.State(now)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, incoming); err != nil {
			return fmt.Errorf("update engagement: %w", err)
		}
		if err := s.categories.ReplaceForEngagement(txCtx, incoming.UUID, categoryRows(incoming, now)); err != nil {
			return fmt.Errorf("project categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	// A category-driven write signals the merge so the mirror refreshes the
	// category file alongside the engagement file in one commit.
	kind := event.KindEngagementUpdated
	if categoryUpdate {
		kind = event.KindCategoriesMerged
	}
	s.bus.Publish(kind, incoming)

	s.log.InfoContext(ctx, "engagement updated",
		slog.String("uuid", incoming.UUID),
		slog.Int("changes", len(cs.Changes)),
	)
	return incoming, true, nil
}
