package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// projectName is the fixed repository name inside every engagement group;
// the path segment is what distinguishes engagements, not the project name.
const projectName = "iac"

// Create provisions the mirror structure for a new engagement: customer
// group, engagement group, project, webhooks, deploy key, and the initial
// file commit. The assigned project id is written back to the primary store.
//
// A create signal for an engagement whose project still exists is a re-post
// that lost its files; only the file commit is replayed then.
func (s *Service) Create(ctx context.Context, e *domain.Engagement) error {
	if e.ProjectID != 0 {
		project, err := s.git.GetProject(ctx, e.ProjectID)
		if err != nil {
			return fmt.Errorf("mirror create %s: %w", e.UUID, err)
		}
		if project != nil {
			if err := s.writeInitialFiles(ctx, e, project.ID, true); err != nil {
				return fmt.Errorf("mirror create %s: %w", e.UUID, err)
			}
			s.log.InfoContext(ctx, "mirror files restored",
				slog.String("uuid", e.UUID), slog.Int("project_id", project.ID))
			return nil
		}
		// The recorded project vanished; rebuild from scratch.
	}

	root, err := s.mirrorRoot(ctx)
	if err != nil {
		return fmt.Errorf("mirror create %s: %w", e.UUID, err)
	}

	customer, err := s.ensureGroup(ctx, root, e.CustomerName)
	if err != nil {
		return fmt.Errorf("mirror create %s: customer group: %w", e.UUID, err)
	}
	engGroup, err := s.ensureGroup(ctx, customer, e.Name)
	if err != nil {
		return fmt.Errorf("mirror create %s: engagement group: %w", e.UUID, err)
	}

	project, err := s.ensureProject(ctx, e, engGroup)
	if err != nil {
		return fmt.Errorf("mirror create %s: %w", e.UUID, err)
	}

	// Hooks go in before the first commit so consumers see it land.
	s.installHooks(ctx, e, project.ID)

	if err := s.git.EnableDeployKey(ctx, project.ID); err != nil {
		s.log.WarnContext(ctx, "deploy key activation failed",
			slog.String("uuid", e.UUID), slog.String("error", err.Error()))
	}

	if err := s.writeInitialFiles(ctx, e, project.ID, false); err != nil {
		return fmt.Errorf("mirror create %s: %w", e.UUID, err)
	}

	if err := s.repo.UpdateProjectID(ctx, e.UUID, project.ID); err != nil {
		return fmt.Errorf("mirror create %s: record project id: %w", e.UUID, err)
	}

	s.log.InfoContext(ctx, "engagement mirrored",
		slog.String("uuid", e.UUID),
		slog.String("path", project.PathWithNamespace),
		slog.Int("project_id", project.ID),
	)
	return nil
}

// ensureGroup finds the child group of parent whose path is the slug of
// name, creating it when missing.
func (s *Service) ensureGroup(ctx context.Context, parent *gitlab.Group, name string) (*gitlab.Group, error) {
	path := gitlab.Slug(name)

	g, err := s.git.GetGroupByFullPath(ctx, parent.FullPath+"/"+path)
	if err != nil {
		return nil, err
	}
	if g != nil {
		return g, nil
	}
	return s.git.CreateGroup(ctx, strings.TrimSpace(name), path, parent.ID)
}

// ensureProject finds or creates the engagement's project, tagged with the
// service marker and the current lifecycle state.
func (s *Service) ensureProject(ctx context.Context, e *domain.Engagement, group *gitlab.Group) (*gitlab.Project, error) {
	p, err := s.git.GetProjectByPath(ctx, group.FullPath+"/"+projectName)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	description := descriptionPrefix + e.UUID
	tags := []string{s.cfg.Tag, s.stateTag(e.State(s.now()))}
	return s.git.CreateProject(ctx, projectName, projectName, group.ID, description, tags)
}

func (s *Service) writeInitialFiles(ctx context.Context, e *domain.Engagement, projectID int, probe bool) error {
	actions, err := s.initialActions(ctx, e, projectID, probe)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Engagement Created %s %s", s.mysteryEmoji(), s.mysteryEmoji())
	if e.MirrorRetry {
		message = "RE-POST: " + message
	}

	_, err = s.git.CreateCommit(ctx, projectID, message, e.LastUpdateByName, e.LastUpdateByEmail, actions)
	return err
}
