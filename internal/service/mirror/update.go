package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// Update commits the changed engagement file to the mirror project, moving
// the project to its new path first when the customer or engagement name
// changed.
func (s *Service) Update(ctx context.Context, e *domain.Engagement) error {
	if e.ProjectID == 0 {
		// Nothing mirrored yet; the create signal will carry this content.
		s.log.WarnContext(ctx, "update for unmirrored engagement skipped", slog.String("uuid", e.UUID))
		return nil
	}

	project, err := s.git.GetProject(ctx, e.ProjectID)
	if err != nil {
		return fmt.Errorf("mirror update %s: %w", e.UUID, err)
	}
	if project == nil {
		return fmt.Errorf("mirror update %s: project %d does not exist", e.UUID, e.ProjectID)
	}

	root, err := s.mirrorRoot(ctx)
	if err != nil {
		return fmt.Errorf("mirror update %s: %w", e.UUID, err)
	}

	wantPath := root.FullPath + "/" + gitlab.Slug(e.CustomerName) + "/" + gitlab.Slug(e.Name) + "/" + project.Path
	if project.PathWithNamespace != wantPath {
		if err := s.restructure(ctx, e, project, root); err != nil {
			return fmt.Errorf("mirror update %s: restructure: %w", e.UUID, err)
		}
	}

	if err := s.commitEngagementFile(ctx, e, project.ID); err != nil {
		return fmt.Errorf("mirror update %s: %w", e.UUID, err)
	}

	s.log.InfoContext(ctx, "mirror updated",
		slog.String("uuid", e.UUID), slog.Int("project_id", project.ID))
	return nil
}

// restructure realigns the group hierarchy with the engagement's current
// customer and name. When the customer group holds only this engagement and
// the new customer path is free, the group is renamed in place; otherwise
// the project transfers into a freshly ensured hierarchy and the old
// customer group is deleted.
func (s *Service) restructure(ctx context.Context, e *domain.Engagement, project *gitlab.Project, root *gitlab.Group) error {
	engGroup, err := s.git.GetGroup(ctx, project.Namespace.ID)
	if err != nil {
		return err
	}
	if engGroup == nil {
		return fmt.Errorf("engagement group %d does not exist", project.Namespace.ID)
	}
	customerGroup, err := s.git.GetGroup(ctx, engGroup.ParentID)
	if err != nil {
		return err
	}
	if customerGroup == nil {
		return fmt.Errorf("customer group %d does not exist", engGroup.ParentID)
	}

	nameChanged := gitlab.Slug(e.Name) != engGroup.Path || e.Name != engGroup.Name
	// A pure display-case change keeps the same slug, so both legs have to
	// disagree before the customer counts as moved.
	customerChanged := customerGroup.Name != e.CustomerName && customerGroup.Path != gitlab.Slug(e.CustomerName)

	if customerChanged {
		siblings, err := s.git.ListSubgroups(ctx, customerGroup.ID)
		if err != nil {
			return err
		}
		target, err := s.git.GetGroupByFullPath(ctx, root.FullPath+"/"+gitlab.Slug(e.CustomerName))
		if err != nil {
			return err
		}

		if len(siblings) == 1 && target == nil {
			// Sole engagement and the new path is free: rename in place.
			if _, err := s.git.UpdateGroup(ctx, customerGroup.ID, strings.TrimSpace(e.CustomerName), gitlab.Slug(e.CustomerName)); err != nil {
				return err
			}
		} else {
			if target == nil {
				target, err = s.git.CreateGroup(ctx, strings.TrimSpace(e.CustomerName), gitlab.Slug(e.CustomerName), root.ID)
				if err != nil {
					return err
				}
			}
			newEng, err := s.ensureGroup(ctx, target, e.Name)
			if err != nil {
				return err
			}
			if _, err := s.git.TransferProject(ctx, project.ID, newEng.ID); err != nil {
				return err
			}
			// Only after the transfer succeeded: deleting the old customer
			// group first would take the project down with it.
			return s.git.DeleteGroup(ctx, customerGroup.ID)
		}
	}

	if nameChanged {
		if _, err := s.git.UpdateGroup(ctx, engGroup.ID, strings.TrimSpace(e.Name), gitlab.Slug(e.Name)); err != nil {
			return err
		}
	}
	return nil
}

// commitEngagementFile writes the engagement and legacy files in one commit
// whose message distinguishes a launch from a plain summary update.
func (s *Service) commitEngagementFile(ctx context.Context, e *domain.Engagement, projectID int) error {
	engagementDoc, err := engagementDocument(e)
	if err != nil {
		return err
	}
	legacyDoc, err := s.legacyDocument(ctx, e, projectID)
	if err != nil {
		return err
	}

	actions := []gitlab.CommitAction{
		{Action: gitlab.ActionUpdate, FilePath: s.cfg.EngagementFile, Content: string(engagementDoc)},
		{Action: gitlab.ActionUpdate, FilePath: s.cfg.LegacyFile, Content: string(legacyDoc)},
	}

	_, err = s.git.CreateCommit(ctx, projectID, s.updateMessage(e), e.LastUpdateByName, e.LastUpdateByEmail, actions)
	return err
}

func (s *Service) updateMessage(e *domain.Engagement) string {
	prefix := "Summary Update"
	if strings.Contains(e.LastMessage, domain.LaunchMessage) {
		prefix = "Launch Ahoy!"
	}
	if e.MirrorRetry {
		prefix = "RE-POST: " + prefix
	}
	return fmt.Sprintf("%s %s %s \n %s", prefix, s.mysteryEmoji(), s.mysteryEmoji(), e.LastMessage)
}
