package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/domain"
)

// StateChanged swaps the lifecycle-state tag on the engagement's project:
// every known state tag is dropped and the tag for the current state added,
// leaving unrelated tags untouched.
func (s *Service) StateChanged(ctx context.Context, e *domain.Engagement) error {
	if e.ProjectID == 0 {
		return nil
	}

	project, err := s.git.GetProject(ctx, e.ProjectID)
	if err != nil {
		return fmt.Errorf("mirror state %s: %w", e.UUID, err)
	}
	if project == nil {
		s.log.WarnContext(ctx, "state change for missing project skipped",
			slog.String("uuid", e.UUID), slog.Int("project_id", e.ProjectID))
		return nil
	}

	stateTags := make(map[string]struct{}, len(domain.States()))
	for _, st := range domain.States() {
		stateTags[s.stateTag(st)] = struct{}{}
	}

	tags := make([]string, 0, len(project.TagList)+1)
	for _, t := range project.TagList {
		if _, ok := stateTags[t]; ok {
			continue
		}
		tags = append(tags, t)
	}
	tags = append(tags, s.stateTag(e.CurrentState))

	if err := s.git.UpdateProjectTags(ctx, project.ID, tags); err != nil {
		return fmt.Errorf("mirror state %s: %w", e.UUID, err)
	}

	s.log.InfoContext(ctx, "mirror state tag updated",
		slog.String("uuid", e.UUID), slog.String("state", string(e.CurrentState)))
	return nil
}
