package engagement

import (
	"context"

	"github.com/guildworks/engagements/internal/domain"
)

// Get returns one engagement by identity with its lifecycle state derived
// at read time.
func (s *Service) Get(ctx context.Context, uuid string) (*domain.Engagement, error) {
	e, err := s.repo.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	e.CurrentState = e.State(s.now())
	return e, nil
}

// GetByProjectID returns the engagement owning a mirror project.
func (s *Service) GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error) {
	e, err := s.repo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	e.CurrentState = e.State(s.now())
	return e, nil
}

// GetByCustomerAndName returns one engagement by its uniqueness key.
func (s *Service) GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error) {
	e, err := s.repo.GetByCustomerAndName(ctx, customerName, name)
	if err != nil {
		return nil, err
	}
	e.CurrentState = e.State(s.now())
	return e, nil
}

// List returns engagements matching the filter together with the unpaged
// total. A StateAny entry in the state filter matches everything.
func (s *Service) List(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, int, error) {
	for _, st := range f.States {
		if st == domain.StateAny {
			f.States = nil
			break
		}
	}

	list, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	for _, e := range list {
		e.CurrentState = e.State(now)
	}
	return list, total, nil
}

// StateCounts returns per-state engagement totals, optionally restricted to
// regions. The ANY key carries the overall total.
func (s *Service) StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error) {
	return s.repo.StateCounts(ctx, regions)
}

// SuggestCustomers returns customer names matching a partial input.
func (s *Service) SuggestCustomers(ctx context.Context, partial string) ([]string, error) {
	return s.repo.SuggestCustomers(ctx, partial)
}

// ListUseCases returns the flattened use-case rows across all engagements.
func (s *Service) ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error) {
	return s.repo.ListUseCases(ctx, page)
}

// GetUseCase returns one use case by its own identity.
func (s *Service) GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error) {
	return s.repo.GetUseCase(ctx, uuid)
}
