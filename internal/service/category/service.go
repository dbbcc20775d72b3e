// Package category keeps the denormalized category view in step with the
// engagement aggregate and serves the category query surface. The
// engagement's own category set stays authoritative; this service only
// normalizes inputs and routes writes through the orchestrator.
package category

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/guildworks/engagements/internal/diff"
	"github.com/guildworks/engagements/internal/domain"
)

type categoryRepo interface {
	ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error)
	Rollup(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error)
	Suggest(ctx context.Context, partial string) ([]string, error)
}

// engagementWriter is the slice of the orchestrator the category path
// needs: read one engagement and push a category-flagged update through the
// regular diff-gated write.
type engagementWriter interface {
	Get(ctx context.Context, uuid string) (*domain.Engagement, error)
	Update(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error)
}

// Service provides category reads and the category merge write path.
type Service struct {
	repo        categoryRepo
	engagements engagementWriter
	log         *slog.Logger
}

// NewService creates the category service.
func NewService(log *slog.Logger, repo categoryRepo, engagements engagementWriter) *Service {
	return &Service{
		repo:        repo,
		engagements: engagements,
		log:         log.With("service", "category"),
	}
}

// Update replaces an engagement's category set. Order does not matter and
// an unchanged set is a no-op: no write, no signal. The actual persistence
// (aggregate column plus view rows) runs through the orchestrator so the
// uniqueness and immutability rules keep applying.
func (s *Service) Update(ctx context.Context, engagementUUID string, names []string) (*domain.Engagement, error) {
	e, err := s.engagements.Get(ctx, engagementUUID)
	if err != nil {
		return nil, err
	}

	normalized := normalize(names)
	if !diff.CompareCategorySets(e.Categories, normalized).HasChanges() {
		return e, nil
	}

	incoming := *e
	incoming.Categories = normalized

	updated, changed, err := s.engagements.Update(ctx, &incoming, true)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.InfoContext(ctx, "categories merged",
			slog.String("uuid", engagementUUID),
			slog.Int("categories", len(normalized)),
		)
	}
	return updated, nil
}

// ListByEngagement returns the view rows of one engagement.
func (s *Service) ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error) {
	return s.repo.ListByEngagement(ctx, engagementUUID)
}

// Rollup returns per-name engagement counts, optionally filtered by a
// search fragment and regions.
func (s *Service) Rollup(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error) {
	return s.repo.Rollup(ctx, search, regions, page)
}

// Suggest returns category names matching a partial input.
func (s *Service) Suggest(ctx context.Context, partial string) ([]string, error) {
	return s.repo.Suggest(ctx, partial)
}

// normalize trims, drops empties and duplicates, and sorts for a stable
// stored order.
func normalize(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
