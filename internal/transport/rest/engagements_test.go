package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/service/engagement"
	"github.com/guildworks/engagements/pkg/ctxutil"
)

// engagementServiceMock implements engagementService with overridable
// functions. Calling an endpoint whose function is nil panics, keeping
// tests honest about what they exercise.
type engagementServiceMock struct {
	CreateFunc               func(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error)
	UpdateFunc               func(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error)
	DeleteFunc               func(ctx context.Context, uuid string) error
	LaunchFunc               func(ctx context.Context, uuid string) (*domain.Engagement, error)
	GetFunc                  func(ctx context.Context, uuid string) (*domain.Engagement, error)
	GetByProjectIDFunc       func(ctx context.Context, projectID int) (*domain.Engagement, error)
	GetByCustomerAndNameFunc func(ctx context.Context, customerName, name string) (*domain.Engagement, error)
	ListFunc                 func(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, int, error)
	StateCountsFunc          func(ctx context.Context, regions []string) (domain.StateCounts, error)
	SuggestCustomersFunc     func(ctx context.Context, partial string) ([]string, error)
	ListNotMirroredFunc      func(ctx context.Context) ([]*domain.Engagement, error)
	ResendFunc               func(ctx context.Context, uuid string) (engagement.ResendAction, error)
	RefreshFunc              func(ctx context.Context, uuids []string) (int, error)
	SweepStatesFunc          func(ctx context.Context) error
	SetParticipantCountFunc  func(ctx context.Context, uuid string, count int) error
	SetArtifactCountFunc     func(ctx context.Context, uuid string, count int) error
	TouchLastUpdateFunc      func(ctx context.Context, uuid string) error
	ListUseCasesFunc         func(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error)
	GetUseCaseFunc           func(ctx context.Context, uuid string) (*domain.UseCase, error)
}

func (m *engagementServiceMock) Create(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error) {
	return m.CreateFunc(ctx, e)
}
func (m *engagementServiceMock) Update(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error) {
	return m.UpdateFunc(ctx, e, categoryUpdate)
}
func (m *engagementServiceMock) Delete(ctx context.Context, uuid string) error {
	return m.DeleteFunc(ctx, uuid)
}
func (m *engagementServiceMock) Launch(ctx context.Context, uuid string) (*domain.Engagement, error) {
	return m.LaunchFunc(ctx, uuid)
}
func (m *engagementServiceMock) Get(ctx context.Context, uuid string) (*domain.Engagement, error) {
	return m.GetFunc(ctx, uuid)
}
func (m *engagementServiceMock) GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error) {
	return m.GetByProjectIDFunc(ctx, projectID)
}
func (m *engagementServiceMock) GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error) {
	return m.GetByCustomerAndNameFunc(ctx, customerName, name)
}
func (m *engagementServiceMock) List(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, int, error) {
	return m.ListFunc(ctx, f)
}
func (m *engagementServiceMock) StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error) {
	return m.StateCountsFunc(ctx, regions)
}
func (m *engagementServiceMock) SuggestCustomers(ctx context.Context, partial string) ([]string, error) {
	return m.SuggestCustomersFunc(ctx, partial)
}
func (m *engagementServiceMock) ListNotMirrored(ctx context.Context) ([]*domain.Engagement, error) {
	return m.ListNotMirroredFunc(ctx)
}
func (m *engagementServiceMock) Resend(ctx context.Context, uuid string) (engagement.ResendAction, error) {
	return m.ResendFunc(ctx, uuid)
}
func (m *engagementServiceMock) Refresh(ctx context.Context, uuids []string) (int, error) {
	return m.RefreshFunc(ctx, uuids)
}
func (m *engagementServiceMock) SweepStates(ctx context.Context) error {
	return m.SweepStatesFunc(ctx)
}
func (m *engagementServiceMock) SetParticipantCount(ctx context.Context, uuid string, count int) error {
	return m.SetParticipantCountFunc(ctx, uuid, count)
}
func (m *engagementServiceMock) SetArtifactCount(ctx context.Context, uuid string, count int) error {
	return m.SetArtifactCountFunc(ctx, uuid, count)
}
func (m *engagementServiceMock) TouchLastUpdate(ctx context.Context, uuid string) error {
	return m.TouchLastUpdateFunc(ctx, uuid)
}
func (m *engagementServiceMock) ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error) {
	return m.ListUseCasesFunc(ctx, page)
}
func (m *engagementServiceMock) GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error) {
	return m.GetUseCaseFunc(ctx, uuid)
}

func engagementMux(svc engagementService) *http.ServeMux {
	mux := http.NewServeMux()
	NewEngagementHandler(svc).Register(mux)
	return mux
}

func TestList_FiltersAndTotalHeader(t *testing.T) {
	t.Parallel()

	var gotFilter domain.EngagementFilter
	svc := &engagementServiceMock{
		ListFunc: func(_ context.Context, f domain.EngagementFilter) ([]*domain.Engagement, int, error) {
			gotFilter = f
			return []*domain.Engagement{{UUID: "e-1"}}, 42, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v2/engagements?q=fish&category=ai-ml&types=Residency&region=emea,na&inStates=ACTIVE,UPCOMING&page=2&pageSize=10", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Total-Engagements") != "42" {
		t.Errorf("total header = %q", rec.Header().Get("X-Total-Engagements"))
	}

	if gotFilter.Search != "fish" || gotFilter.Category != "ai-ml" {
		t.Errorf("filter = %+v", gotFilter)
	}
	if len(gotFilter.Regions) != 2 || gotFilter.Regions[1] != "na" {
		t.Errorf("regions = %v", gotFilter.Regions)
	}
	if len(gotFilter.States) != 2 || gotFilter.States[0] != domain.StateActive {
		t.Errorf("states = %v", gotFilter.States)
	}
	if gotFilter.Page.Page != 2 || gotFilter.Page.PageSize != 10 {
		t.Errorf("page = %+v", gotFilter.Page)
	}
}

func TestList_UnknownStateRejected(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{}
	req := httptest.NewRequest(http.MethodGet, "/api/v2/engagements?inStates=BOGUS", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreate_PassesAuthorAndReturns201(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		CreateFunc: func(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error) {
			a, ok := ctxutil.AuthorFromCtx(ctx)
			if !ok || a.Name != "Pat Walker" || a.Email != "pat@example.com" {
				t.Errorf("author = %+v, ok = %v", a, ok)
			}
			e.UUID = "e-new"
			return e, nil
		},
	}

	body := strings.NewReader(`{"customer_name":"DO500","name":"Fish Gym","engagement_type":"Residency","engagement_region":"emea"}`)
	req := httptest.NewRequest(http.MethodPost,
		"/api/v2/engagements?authorName=Pat+Walker&authorEmail=pat@example.com", body)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v2/engagements/e-new" {
		t.Errorf("location = %q", loc)
	}
}

func TestCreate_ConflictMapsTo409(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		CreateFunc: func(context.Context, *domain.Engagement) (*domain.Engagement, error) {
			return nil, domain.ErrConflict
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v2/engagements", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreate_ValidationMapsTo400WithFields(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		CreateFunc: func(context.Context, *domain.Engagement) (*domain.Engagement, error) {
			return nil, domain.NewValidationError("engagement_type", "is required")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v2/engagements", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Fields) != 1 || resp.Fields[0].Field != "engagement_type" {
		t.Errorf("fields = %v", resp.Fields)
	}
}

func TestUpdate_NoChangesIs204(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		UpdateFunc: func(_ context.Context, e *domain.Engagement, _ bool) (*domain.Engagement, bool, error) {
			return e, false, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements", strings.NewReader(`{"uuid":"e-1"}`))
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestGet_NotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		GetFunc: func(context.Context, string) (*domain.Engagement, error) {
			return nil, domain.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/engagements/e-missing", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHead_ExposesLastUpdate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := &engagementServiceMock{
		GetFunc: func(_ context.Context, uuid string) (*domain.Engagement, error) {
			return &domain.Engagement{UUID: uuid, LastUpdate: &ts}, nil
		},
	}

	req := httptest.NewRequest(http.MethodHead, "/api/v2/engagements/e-1", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Last-Update"); !strings.HasPrefix(got, "2025-03-10T12:00:00") {
		t.Errorf("last-update header = %q", got)
	}
}

func TestLaunch_ConflictWhenAlreadyLaunched(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		LaunchFunc: func(context.Context, string) (*domain.Engagement, error) {
			return nil, domain.ErrConflict
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements/e-1/launch?author=Pat&authorEmail=pat@example.com", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRetry_RequiresUUID(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{}
	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements/retry", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRetry_ReturnsAction(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		ResendFunc: func(_ context.Context, uuid string) (engagement.ResendAction, error) {
			if uuid != "e-1" {
				t.Errorf("uuid = %q", uuid)
			}
			return engagement.ResendCreate, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements/retry?uuid=e-1", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["action"] != "create" {
		t.Errorf("action = %q", resp["action"])
	}
}

func TestRefresh_PassesUUIDsAndTotal(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		RefreshFunc: func(_ context.Context, uuids []string) (int, error) {
			if len(uuids) != 2 {
				t.Errorf("uuids = %v", uuids)
			}
			return 2, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements/refresh?uuids=e-1,e-2", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Total-Engagements") != "2" {
		t.Errorf("total header = %q", rec.Header().Get("X-Total-Engagements"))
	}
}

func TestSetParticipants_ParsesCount(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		SetParticipantCountFunc: func(_ context.Context, uuid string, count int) error {
			if uuid != "e-1" || count != 7 {
				t.Errorf("uuid = %q, count = %d", uuid, count)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v2/engagements/e-1/participants/7", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNotMirrored_ReturnsUUIDs(t *testing.T) {
	t.Parallel()

	svc := &engagementServiceMock{
		ListNotMirroredFunc: func(context.Context) ([]*domain.Engagement, error) {
			return []*domain.Engagement{{UUID: "e-1"}, {UUID: "e-2"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/engagements/gitlab", nil)
	rec := httptest.NewRecorder()
	engagementMux(svc).ServeHTTP(rec, req)

	var uuids []string
	if err := json.Unmarshal(rec.Body.Bytes(), &uuids); err != nil {
		t.Fatal(err)
	}
	if len(uuids) != 2 || uuids[0] != "e-1" {
		t.Errorf("uuids = %v", uuids)
	}
}
