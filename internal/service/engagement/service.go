// Package engagement implements the reconciliation orchestrator: it
// validates and persists engagement writes against the primary store,
// gates updates on a structural diff, derives lifecycle state, and emits
// the signals the mirror synchronizer consumes.
package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guildworks/engagements/internal/diff"
	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

type engagementRepo interface {
	GetByUUID(ctx context.Context, uuid string) (*domain.Engagement, error)
	GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error)
	GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error)
	IsNameTaken(ctx context.Context, customerName, name, excludeUUID string) (bool, error)
	Create(ctx context.Context, e *domain.Engagement) error
	Update(ctx context.Context, e *domain.Engagement) error
	Delete(ctx context.Context, uuid string) error
	Find(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error)
	Count(ctx context.Context, f domain.EngagementFilter) (int, error)
	CountAll(ctx context.Context) (int, error)
	StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error)
	SuggestCustomers(ctx context.Context, partial string) ([]string, error)
	ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error)
	GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error)
	UpdateCounts(ctx context.Context, uuid string, participants, hosting, artifacts *int) error
	UpdateState(ctx context.Context, uuid string, state domain.State) (bool, error)
	UpdateLastUpdate(ctx context.Context, uuid string, ts time.Time) error
	ListWithoutLastUpdate(ctx context.Context) ([]string, error)
	Purge(ctx context.Context) error
	PersistAll(ctx context.Context, engagements []*domain.Engagement) error
}

type categoryStore interface {
	ReplaceForEngagement(ctx context.Context, engagementUUID string, categories []domain.Category) error
	DeleteByEngagement(ctx context.Context, engagementUUID string) error
	Purge(ctx context.Context) error
}

type countsClient interface {
	ParticipantCount(ctx context.Context, engagementUUID string) (*int, error)
	ArtifactCount(ctx context.Context, engagementUUID string) (*int, error)
	LastActivity(ctx context.Context, engagementUUID string) (*time.Time, error)
}

// mirrorStore is the read-side view of the mirror the orchestrator needs:
// existence probes for the resend decision and the bulk snapshot read used
// by refresh.
type mirrorStore interface {
	ProjectExists(ctx context.Context, projectID int) (bool, error)
	EngagementFileExists(ctx context.Context, projectID int) (bool, error)
	LoadAll(ctx context.Context) ([]*domain.Engagement, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type publisher interface {
	Publish(kind event.Kind, payload any)
}

// Service provides engagement write and query operations.
type Service struct {
	repo       engagementRepo
	categories categoryStore
	counts     countsClient
	mirror     mirrorStore
	tx         txManager
	bus        publisher
	log        *slog.Logger

	now func() time.Time
}

// NewService creates the engagement service.
func NewService(
	log *slog.Logger,
	repo engagementRepo,
	categories categoryStore,
	counts countsClient,
	mirror mirrorStore,
	tx txManager,
	bus publisher,
) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		counts:     counts,
		mirror:     mirror,
		tx:         tx,
		bus:        bus,
		log:        log.With("service", "engagement"),
		now:        time.Now,
	}
}

// reconcileUseCases applies copy-on-write semantics before diffing: a use
// case without identity is new (fresh uuid, both timestamps set to now); a
// known identity keeps its created stamp and only advances updated when its
// content actually changed.
func reconcileUseCases(existing, incoming []domain.UseCase, now time.Time) {
	prev := make(map[string]domain.UseCase, len(existing))
	for _, uc := range existing {
		if uc.UUID != "" {
			prev[uc.UUID] = uc
		}
	}

	for i := range incoming {
		uc := &incoming[i]
		if uc.UUID == "" {
			uc.UUID = uuid.NewString()
			uc.Created = &now
			uc.Updated = &now
			continue
		}
		p, ok := prev[uc.UUID]
		if !ok {
			uc.Created = &now
			uc.Updated = &now
			continue
		}
		uc.Created = p.Created
		if diff.UseCaseChanged(p, *uc) {
			uc.Updated = &now
		} else {
			uc.Updated = p.Updated
		}
	}
}

// categoryRows projects the engagement's category set onto view rows.
func categoryRows(e *domain.Engagement, now time.Time) []domain.Category {
	rows := make([]domain.Category, 0, len(e.Categories))
	for _, name := range e.Categories {
		rows = append(rows, domain.Category{
			UUID:           uuid.NewString(),
			EngagementUUID: e.UUID,
			Name:           name,
			Region:         e.Region,
			Created:        &now,
		})
	}
	return rows
}
