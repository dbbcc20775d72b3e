package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// CategoriesMerged writes the engagement's category rows and the refreshed
// engagement files in a single commit.
func (s *Service) CategoriesMerged(ctx context.Context, e *domain.Engagement) error {
	if e.ProjectID == 0 {
		// The create commit will already carry the current category set.
		return nil
	}

	if err := s.commitCategories(ctx, e); err != nil {
		return fmt.Errorf("mirror categories %s: %w", e.UUID, err)
	}

	s.log.InfoContext(ctx, "mirror categories updated",
		slog.String("uuid", e.UUID), slog.Int("project_id", e.ProjectID))
	return nil
}

// CategoriesRefresh rewrites the category file of every mirrored engagement.
// Per-engagement failures are logged and the walk continues.
func (s *Service) CategoriesRefresh(ctx context.Context) error {
	engagements, err := s.repo.Find(ctx, domain.EngagementFilter{})
	if err != nil {
		return fmt.Errorf("mirror categories refresh: %w", err)
	}

	refreshed := 0
	for _, e := range engagements {
		if e.ProjectID == 0 {
			continue
		}
		if err := s.commitCategories(ctx, e); err != nil {
			s.log.WarnContext(ctx, "category refresh failed",
				slog.String("uuid", e.UUID), slog.String("error", err.Error()))
			continue
		}
		refreshed++
	}

	s.log.InfoContext(ctx, "mirror categories refreshed", slog.Int("projects", refreshed))
	return nil
}

func (s *Service) commitCategories(ctx context.Context, e *domain.Engagement) error {
	rows, err := s.categories.ListByEngagement(ctx, e.UUID)
	if err != nil {
		return err
	}
	categoryDoc, err := categoryDocument(rows)
	if err != nil {
		return err
	}
	engagementDoc, err := engagementDocument(e)
	if err != nil {
		return err
	}
	legacyDoc, err := s.legacyDocument(ctx, e, e.ProjectID)
	if err != nil {
		return err
	}

	categoryAction, err := s.fileAction(ctx, e.ProjectID, s.cfg.CategoryFile, true)
	if err != nil {
		return err
	}

	actions := []gitlab.CommitAction{
		{Action: categoryAction, FilePath: s.cfg.CategoryFile, Content: string(categoryDoc)},
		{Action: gitlab.ActionUpdate, FilePath: s.cfg.EngagementFile, Content: string(engagementDoc)},
		{Action: gitlab.ActionUpdate, FilePath: s.cfg.LegacyFile, Content: string(legacyDoc)},
	}

	message := fmt.Sprintf("Categories updated %s %s \n %s", s.mysteryEmoji(), s.mysteryEmoji(), e.LastMessage)
	_, err = s.git.CreateCommit(ctx, e.ProjectID, message, e.LastUpdateByName, e.LastUpdateByEmail, actions)
	return err
}
