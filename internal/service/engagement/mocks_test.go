package engagement

import (
	"context"
	"time"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

// Hand-rolled func-field mocks. A nil func panics, so every test states
// exactly which collaborator calls it expects.

var _ engagementRepo = &engagementRepoMock{}

type engagementRepoMock struct {
	GetByUUIDFunc             func(ctx context.Context, uuid string) (*domain.Engagement, error)
	GetByProjectIDFunc        func(ctx context.Context, projectID int) (*domain.Engagement, error)
	GetByCustomerAndNameFunc  func(ctx context.Context, customerName, name string) (*domain.Engagement, error)
	IsNameTakenFunc           func(ctx context.Context, customerName, name, excludeUUID string) (bool, error)
	CreateFunc                func(ctx context.Context, e *domain.Engagement) error
	UpdateFunc                func(ctx context.Context, e *domain.Engagement) error
	DeleteFunc                func(ctx context.Context, uuid string) error
	FindFunc                  func(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error)
	CountFunc                 func(ctx context.Context, f domain.EngagementFilter) (int, error)
	CountAllFunc              func(ctx context.Context) (int, error)
	StateCountsFunc           func(ctx context.Context, regions []string) (domain.StateCounts, error)
	SuggestCustomersFunc      func(ctx context.Context, partial string) ([]string, error)
	ListUseCasesFunc          func(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error)
	GetUseCaseFunc            func(ctx context.Context, uuid string) (*domain.UseCase, error)
	UpdateCountsFunc          func(ctx context.Context, uuid string, participants, hosting, artifacts *int) error
	UpdateStateFunc           func(ctx context.Context, uuid string, state domain.State) (bool, error)
	UpdateLastUpdateFunc      func(ctx context.Context, uuid string, ts time.Time) error
	ListWithoutLastUpdateFunc func(ctx context.Context) ([]string, error)
	PurgeFunc                 func(ctx context.Context) error
	PersistAllFunc            func(ctx context.Context, engagements []*domain.Engagement) error

	CreateCalls     []*domain.Engagement
	UpdateCalls     []*domain.Engagement
	DeleteCalls     []string
	PersistAllCalls [][]*domain.Engagement
	PurgeCalls      int
}

func (m *engagementRepoMock) GetByUUID(ctx context.Context, uuid string) (*domain.Engagement, error) {
	return m.GetByUUIDFunc(ctx, uuid)
}

func (m *engagementRepoMock) GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error) {
	return m.GetByProjectIDFunc(ctx, projectID)
}

func (m *engagementRepoMock) GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error) {
	return m.GetByCustomerAndNameFunc(ctx, customerName, name)
}

func (m *engagementRepoMock) IsNameTaken(ctx context.Context, customerName, name, excludeUUID string) (bool, error) {
	return m.IsNameTakenFunc(ctx, customerName, name, excludeUUID)
}

func (m *engagementRepoMock) Create(ctx context.Context, e *domain.Engagement) error {
	m.CreateCalls = append(m.CreateCalls, e)
	return m.CreateFunc(ctx, e)
}

func (m *engagementRepoMock) Update(ctx context.Context, e *domain.Engagement) error {
	m.UpdateCalls = append(m.UpdateCalls, e)
	return m.UpdateFunc(ctx, e)
}

func (m *engagementRepoMock) Delete(ctx context.Context, uuid string) error {
	m.DeleteCalls = append(m.DeleteCalls, uuid)
	return m.DeleteFunc(ctx, uuid)
}

func (m *engagementRepoMock) Find(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error) {
	return m.FindFunc(ctx, f)
}

func (m *engagementRepoMock) Count(ctx context.Context, f domain.EngagementFilter) (int, error) {
	return m.CountFunc(ctx, f)
}

func (m *engagementRepoMock) CountAll(ctx context.Context) (int, error) {
	return m.CountAllFunc(ctx)
}

func (m *engagementRepoMock) StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error) {
	return m.StateCountsFunc(ctx, regions)
}

func (m *engagementRepoMock) SuggestCustomers(ctx context.Context, partial string) ([]string, error) {
	return m.SuggestCustomersFunc(ctx, partial)
}

func (m *engagementRepoMock) ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error) {
	return m.ListUseCasesFunc(ctx, page)
}

func (m *engagementRepoMock) GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error) {
	return m.GetUseCaseFunc(ctx, uuid)
}

func (m *engagementRepoMock) UpdateCounts(ctx context.Context, uuid string, participants, hosting, artifacts *int) error {
	return m.UpdateCountsFunc(ctx, uuid, participants, hosting, artifacts)
}

func (m *engagementRepoMock) UpdateState(ctx context.Context, uuid string, state domain.State) (bool, error) {
	return m.UpdateStateFunc(ctx, uuid, state)
}

func (m *engagementRepoMock) UpdateLastUpdate(ctx context.Context, uuid string, ts time.Time) error {
	return m.UpdateLastUpdateFunc(ctx, uuid, ts)
}

func (m *engagementRepoMock) ListWithoutLastUpdate(ctx context.Context) ([]string, error) {
	return m.ListWithoutLastUpdateFunc(ctx)
}

func (m *engagementRepoMock) Purge(ctx context.Context) error {
	m.PurgeCalls++
	return m.PurgeFunc(ctx)
}

func (m *engagementRepoMock) PersistAll(ctx context.Context, engagements []*domain.Engagement) error {
	m.PersistAllCalls = append(m.PersistAllCalls, engagements)
	return m.PersistAllFunc(ctx, engagements)
}

var _ categoryStore = &categoryStoreMock{}

type categoryStoreMock struct {
	ReplaceForEngagementFunc func(ctx context.Context, engagementUUID string, categories []domain.Category) error
	DeleteByEngagementFunc   func(ctx context.Context, engagementUUID string) error
	PurgeFunc                func(ctx context.Context) error

	ReplaceCalls [][]domain.Category
	DeleteCalls  []string
	PurgeCalls   int
}

func (m *categoryStoreMock) ReplaceForEngagement(ctx context.Context, engagementUUID string, categories []domain.Category) error {
	m.ReplaceCalls = append(m.ReplaceCalls, categories)
	return m.ReplaceForEngagementFunc(ctx, engagementUUID, categories)
}

func (m *categoryStoreMock) DeleteByEngagement(ctx context.Context, engagementUUID string) error {
	m.DeleteCalls = append(m.DeleteCalls, engagementUUID)
	return m.DeleteByEngagementFunc(ctx, engagementUUID)
}

func (m *categoryStoreMock) Purge(ctx context.Context) error {
	m.PurgeCalls++
	return m.PurgeFunc(ctx)
}

var _ countsClient = &countsClientMock{}

type countsClientMock struct {
	ParticipantCountFunc func(ctx context.Context, engagementUUID string) (*int, error)
	ArtifactCountFunc    func(ctx context.Context, engagementUUID string) (*int, error)
	LastActivityFunc     func(ctx context.Context, engagementUUID string) (*time.Time, error)
}

func (m *countsClientMock) ParticipantCount(ctx context.Context, engagementUUID string) (*int, error) {
	return m.ParticipantCountFunc(ctx, engagementUUID)
}

func (m *countsClientMock) ArtifactCount(ctx context.Context, engagementUUID string) (*int, error) {
	return m.ArtifactCountFunc(ctx, engagementUUID)
}

func (m *countsClientMock) LastActivity(ctx context.Context, engagementUUID string) (*time.Time, error) {
	return m.LastActivityFunc(ctx, engagementUUID)
}

var _ mirrorStore = &mirrorStoreMock{}

type mirrorStoreMock struct {
	ProjectExistsFunc        func(ctx context.Context, projectID int) (bool, error)
	EngagementFileExistsFunc func(ctx context.Context, projectID int) (bool, error)
	LoadAllFunc              func(ctx context.Context) ([]*domain.Engagement, error)
}

func (m *mirrorStoreMock) ProjectExists(ctx context.Context, projectID int) (bool, error) {
	return m.ProjectExistsFunc(ctx, projectID)
}

func (m *mirrorStoreMock) EngagementFileExists(ctx context.Context, projectID int) (bool, error) {
	return m.EngagementFileExistsFunc(ctx, projectID)
}

func (m *mirrorStoreMock) LoadAll(ctx context.Context) ([]*domain.Engagement, error) {
	return m.LoadAllFunc(ctx)
}

var _ txManager = &txManagerMock{}

type txManagerMock struct {
	RunInTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTxFunc(ctx, fn)
}

var _ publisher = &publisherMock{}

type publisherMock struct {
	Published []event.Signal
}

func (m *publisherMock) Publish(kind event.Kind, payload any) {
	m.Published = append(m.Published, event.Signal{Kind: kind, Payload: payload})
}
