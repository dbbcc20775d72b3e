// Package mirror keeps the engagement store's external git mirror in sync.
// Each engagement maps to customer-group/engagement-group/project in the
// mirror store; the service consumes signals from the write path and applies
// the matching group, project, file, webhook, and tag operations.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/config"
	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// gitClient is the mirror-store API surface the synchronizer drives.
type gitClient interface {
	Branch() string
	RootGroupID() int
	PathPrefix() string

	GetGroup(ctx context.Context, id int) (*gitlab.Group, error)
	GetGroupByFullPath(ctx context.Context, fullPath string) (*gitlab.Group, error)
	ListSubgroups(ctx context.Context, parentID int) ([]gitlab.Group, error)
	ListGroupProjects(ctx context.Context, groupID int) ([]gitlab.Project, error)
	CreateGroup(ctx context.Context, name, path string, parentID int) (*gitlab.Group, error)
	UpdateGroup(ctx context.Context, id int, name, path string) (*gitlab.Group, error)
	DeleteGroup(ctx context.Context, id int) error

	GetProject(ctx context.Context, id int) (*gitlab.Project, error)
	GetProjectByPath(ctx context.Context, pathWithNamespace string) (*gitlab.Project, error)
	CreateProject(ctx context.Context, name, path string, namespaceID int, description string, tags []string) (*gitlab.Project, error)
	UpdateProjectTags(ctx context.Context, projectID int, tags []string) error
	TransferProject(ctx context.Context, projectID, groupID int) (*gitlab.Project, error)
	EnableDeployKey(ctx context.Context, projectID int) error

	GetFile(ctx context.Context, projectID int, filePath string) (*gitlab.RepositoryFile, error)
	CreateCommit(ctx context.Context, projectID int, message, authorName, authorEmail string, actions []gitlab.CommitAction) (*gitlab.Commit, error)

	ListProjectHooks(ctx context.Context, projectID int) ([]gitlab.ProjectHook, error)
	CreateProjectHook(ctx context.Context, projectID int, url string, pushEvents bool, branchFilter, token string) (*gitlab.ProjectHook, error)
	DeleteProjectHook(ctx context.Context, projectID, hookID int) error
}

// engagementRecs records mirror-side facts back onto the primary store and
// lists the engagements the bulk handlers walk.
type engagementRecs interface {
	UpdateProjectID(ctx context.Context, uuid string, projectID int) error
	Find(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error)
}

type categoryReader interface {
	ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error)
}

// configProvider resolves webhook definitions and per-type runtime documents.
type configProvider interface {
	Get(ctx context.Context) ([]domain.HookConfig, error)
	RuntimeDocument(ctx context.Context, engagementType string) (json.RawMessage, error)
}

type subscriber interface {
	Subscribe(kind event.Kind, h event.Handler)
}

// Service applies engagement changes to the mirror store.
type Service struct {
	git        gitClient
	repo       engagementRecs
	categories categoryReader
	config     configProvider
	cfg        config.GitlabConfig
	log        *slog.Logger

	now  func() time.Time
	intn func(n int) int
}

// NewService creates the mirror synchronizer.
func NewService(
	log *slog.Logger,
	git gitClient,
	repo engagementRecs,
	categories categoryReader,
	cfgProvider configProvider,
	cfg config.GitlabConfig,
) *Service {
	return &Service{
		git:        git,
		repo:       repo,
		categories: categories,
		config:     cfgProvider,
		cfg:        cfg,
		log:        log.With("service", "mirror"),
		now:        time.Now,
		intn:       rand.IntN,
	}
}

// Register attaches the synchronizer to the signal bus. One consumer per
// kind, so same-kind signals apply in publish order.
func (s *Service) Register(bus subscriber) {
	bus.Subscribe(event.KindEngagementCreated, s.engagementHandler(s.Create))
	bus.Subscribe(event.KindEngagementUpdated, s.engagementHandler(s.Update))
	bus.Subscribe(event.KindEngagementDeleted, s.engagementHandler(s.Delete))
	bus.Subscribe(event.KindCategoriesMerged, s.engagementHandler(s.CategoriesMerged))
	bus.Subscribe(event.KindStateChanged, s.engagementHandler(s.StateChanged))
	bus.Subscribe(event.KindCategoriesRefresh, func(ctx context.Context, _ event.Signal) error {
		return s.CategoriesRefresh(ctx)
	})
	bus.Subscribe(event.KindWebhooksRefresh, func(ctx context.Context, _ event.Signal) error {
		return s.WebhooksRefresh(ctx)
	})
}

func (s *Service) engagementHandler(fn func(ctx context.Context, e *domain.Engagement) error) event.Handler {
	return func(ctx context.Context, sig event.Signal) error {
		e, ok := sig.Payload.(*domain.Engagement)
		if !ok {
			return fmt.Errorf("mirror: %s signal carries %T, want *domain.Engagement", sig.Kind, sig.Payload)
		}
		return fn(ctx, e)
	}
}

// mirrorRoot resolves the group all customer groups hang off: the configured
// root group, or an environment subgroup under it when a path prefix is set.
func (s *Service) mirrorRoot(ctx context.Context) (*gitlab.Group, error) {
	root, err := s.git.GetGroup(ctx, s.git.RootGroupID())
	if err != nil {
		return nil, fmt.Errorf("get root group: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("root group %d does not exist", s.git.RootGroupID())
	}

	env := s.git.PathPrefix()
	if env == "" {
		return root, nil
	}

	full := root.FullPath + "/" + gitlab.Slug(env)
	g, err := s.git.GetGroupByFullPath(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("get environment group %s: %w", full, err)
	}
	if g != nil {
		return g, nil
	}
	g, err = s.git.CreateGroup(ctx, env, gitlab.Slug(env), root.ID)
	if err != nil {
		return nil, fmt.Errorf("create environment group %s: %w", full, err)
	}
	return g, nil
}

// mysteryEmoji picks a random animal face for commit messages.
func (s *Service) mysteryEmoji() string {
	const bear = 0x1F43B
	return string(rune(bear + s.intn(144)))
}

func (s *Service) stateTag(state domain.State) string {
	return fmt.Sprintf(s.cfg.StateTagFormat, string(state))
}
