package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// seedContent is committed as the body of every seed placeholder file.
const seedContent = "[]"

// engagementDocument renders the engagement file. Collaborator-derived
// counts are volatile and never written to the mirror.
func engagementDocument(e *domain.Engagement) ([]byte, error) {
	doc := *e
	doc.ParticipantCount = nil
	doc.HostingCount = nil
	doc.ArtifactCount = nil

	raw, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal engagement %s: %w", e.UUID, err)
	}
	return raw, nil
}

// legacyDocument renders the flat engagement file kept at the repository
// root for older consumers: the engagement document reshaped to the legacy
// field names, with collections the primary store does not own carried over
// from the previous revision.
func (s *Service) legacyDocument(ctx context.Context, e *domain.Engagement, projectID int) ([]byte, error) {
	doc := *e
	doc.ParticipantCount = nil
	doc.HostingCount = nil
	doc.ArtifactCount = nil
	doc.LastMessage = ""

	raw, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal engagement %s: %w", e.UUID, err)
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("reshape engagement %s: %w", e.UUID, err)
	}

	if name, ok := flat["name"]; ok {
		flat["project_name"] = name
		delete(flat, "name")
	}

	// Collections owned by other services live only in the legacy file.
	if projectID != 0 {
		prev, err := s.git.GetFile(ctx, projectID, s.cfg.LegacyFile)
		if err != nil {
			return nil, fmt.Errorf("read previous legacy file: %w", err)
		}
		if prev != nil {
			content, err := prev.Decoded()
			if err != nil {
				return nil, err
			}
			var old map[string]any
			if err := json.Unmarshal(content, &old); err == nil {
				for _, key := range []string{"hosting_environments", "engagement_users", "artifacts"} {
					if v, ok := old[key]; ok {
						flat[key] = v
					}
				}
			}
		}
	}

	// Map marshaling emits keys in sorted order, keeping diffs stable.
	return json.MarshalIndent(flat, "", "  ")
}

// categoryDocument renders the category file from the denormalized rows.
func categoryDocument(rows []domain.Category) ([]byte, error) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	if rows == nil {
		rows = []domain.Category{}
	}
	return json.MarshalIndent(rows, "", "  ")
}

// fileAction picks the commit verb for a path, probing the repository when
// the file may already exist.
func (s *Service) fileAction(ctx context.Context, projectID int, path string, probe bool) (string, error) {
	if !probe {
		return gitlab.ActionCreate, nil
	}
	f, err := s.git.GetFile(ctx, projectID, path)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", path, err)
	}
	if f != nil {
		return gitlab.ActionUpdate, nil
	}
	return gitlab.ActionCreate, nil
}

// initialActions assembles the full file set committed when a project is
// first populated: engagement file, legacy copy, the per-type runtime
// document, and the configured seed placeholders. With probe set, paths
// already present become updates instead of creates, so a re-post onto a
// half-populated project does not fail the whole commit.
func (s *Service) initialActions(ctx context.Context, e *domain.Engagement, projectID int, probe bool) ([]gitlab.CommitAction, error) {
	engagementDoc, err := engagementDocument(e)
	if err != nil {
		return nil, err
	}

	// On a fresh project there is no previous legacy revision to carry.
	legacyFrom := 0
	if probe {
		legacyFrom = projectID
	}
	legacyDoc, err := s.legacyDocument(ctx, e, legacyFrom)
	if err != nil {
		return nil, err
	}

	type entry struct {
		path    string
		content string
	}
	paths := []entry{
		{s.cfg.EngagementFile, string(engagementDoc)},
		{s.cfg.LegacyFile, string(legacyDoc)},
	}

	runtime, err := s.config.RuntimeDocument(ctx, e.Type)
	if err != nil {
		return nil, fmt.Errorf("resolve runtime document: %w", err)
	}
	if len(runtime) > 0 {
		paths = append(paths, entry{s.cfg.RuntimeFile, string(runtime)})
	}

	for _, f := range s.cfg.SeedFiles {
		paths = append(paths, entry{s.cfg.SeedDir + f, seedContent})
	}

	actions := make([]gitlab.CommitAction, 0, len(paths))
	for _, p := range paths {
		verb, err := s.fileAction(ctx, projectID, p.path, probe)
		if err != nil {
			return nil, err
		}
		actions = append(actions, gitlab.CommitAction{Action: verb, FilePath: p.path, Content: p.content})
	}
	return actions, nil
}

// ProjectExists reports whether the engagement's mirror project is present.
// Ids below 2 are reserved by the mirror store and never hold an engagement.
func (s *Service) ProjectExists(ctx context.Context, projectID int) (bool, error) {
	if projectID < 2 {
		return false, nil
	}
	p, err := s.git.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// EngagementFileExists reports whether the engagement file is present in the
// mirror project.
func (s *Service) EngagementFileExists(ctx context.Context, projectID int) (bool, error) {
	if projectID < 2 {
		return false, nil
	}
	f, err := s.git.GetFile(ctx, projectID, s.cfg.EngagementFile)
	if err != nil {
		return false, err
	}
	return f != nil, nil
}

// descriptionPrefix marks projects owned by this service; the engagement
// uuid is the description's last token.
const descriptionPrefix = "engagement UUID: "

// LoadAll reads every engagement snapshot out of the mirror store. Projects
// without the ownership marker or without a readable engagement file are
// skipped with a log line, never fatally.
func (s *Service) LoadAll(ctx context.Context) ([]*domain.Engagement, error) {
	projects, err := s.git.ListGroupProjects(ctx, s.git.RootGroupID())
	if err != nil {
		return nil, fmt.Errorf("list mirror projects: %w", err)
	}

	engagements := make([]*domain.Engagement, 0, len(projects))
	for _, p := range projects {
		if !strings.HasPrefix(p.Description, descriptionPrefix) {
			continue
		}

		f, err := s.git.GetFile(ctx, p.ID, s.cfg.EngagementFile)
		if err != nil {
			return nil, fmt.Errorf("read engagement file of project %d: %w", p.ID, err)
		}
		if f == nil {
			s.log.WarnContext(ctx, "mirror project has no engagement file",
				slog.Int("project_id", p.ID), slog.String("path", p.PathWithNamespace))
			continue
		}

		content, err := f.Decoded()
		if err != nil {
			return nil, err
		}

		var e domain.Engagement
		if err := json.Unmarshal(content, &e); err != nil {
			s.log.WarnContext(ctx, "mirror engagement file is not valid json",
				slog.Int("project_id", p.ID), slog.String("error", err.Error()))
			continue
		}

		e.ProjectID = p.ID
		engagements = append(engagements, &e)
	}
	return engagements, nil
}
