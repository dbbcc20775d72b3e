package category

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/guildworks/engagements/internal/domain"
)

type categoryRepoMock struct {
	ListByEngagementFunc func(ctx context.Context, engagementUUID string) ([]domain.Category, error)
	RollupFunc           func(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error)
	SuggestFunc          func(ctx context.Context, partial string) ([]string, error)
}

func (m *categoryRepoMock) ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error) {
	return m.ListByEngagementFunc(ctx, engagementUUID)
}

func (m *categoryRepoMock) Rollup(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error) {
	return m.RollupFunc(ctx, search, regions, page)
}

func (m *categoryRepoMock) Suggest(ctx context.Context, partial string) ([]string, error) {
	return m.SuggestFunc(ctx, partial)
}

type engagementWriterMock struct {
	GetFunc    func(ctx context.Context, uuid string) (*domain.Engagement, error)
	UpdateFunc func(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error)

	UpdateCalls []*domain.Engagement
}

func (m *engagementWriterMock) Get(ctx context.Context, uuid string) (*domain.Engagement, error) {
	return m.GetFunc(ctx, uuid)
}

func (m *engagementWriterMock) Update(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error) {
	m.UpdateCalls = append(m.UpdateCalls, e)
	return m.UpdateFunc(ctx, e, categoryUpdate)
}

func newTestService(t *testing.T, repo *categoryRepoMock, engagements *engagementWriterMock) *Service {
	t.Helper()
	return NewService(slog.Default(), repo, engagements)
}

func TestUpdate_UnchangedSetSkips(t *testing.T) {
	t.Parallel()

	engagements := &engagementWriterMock{
		GetFunc: func(ctx context.Context, uuid string) (*domain.Engagement, error) {
			return &domain.Engagement{UUID: uuid, Categories: []string{"ansible", "kubernetes"}}, nil
		},
	}
	svc := newTestService(t, &categoryRepoMock{}, engagements)

	// Same set in a different order with extra whitespace.
	got, err := svc.Update(context.Background(), "e-1", []string{" kubernetes ", "ansible"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engagements.UpdateCalls) != 0 {
		t.Error("unchanged category set must not trigger a write")
	}
	if got == nil || got.UUID != "e-1" {
		t.Errorf("got = %+v", got)
	}
}

func TestUpdate_ChangedSetDelegates(t *testing.T) {
	t.Parallel()

	engagements := &engagementWriterMock{
		GetFunc: func(ctx context.Context, uuid string) (*domain.Engagement, error) {
			return &domain.Engagement{UUID: uuid, Categories: []string{"ansible"}}, nil
		},
		UpdateFunc: func(ctx context.Context, e *domain.Engagement, categoryUpdate bool) (*domain.Engagement, bool, error) {
			if !categoryUpdate {
				t.Error("category write must set the categoryUpdate flag")
			}
			return e, true, nil
		},
	}
	svc := newTestService(t, &categoryRepoMock{}, engagements)

	got, err := svc.Update(context.Background(), "e-1", []string{"kubernetes", "ansible", "kubernetes", " "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engagements.UpdateCalls) != 1 {
		t.Fatalf("update calls = %d", len(engagements.UpdateCalls))
	}
	want := []string{"ansible", "kubernetes"}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("categories = %v, want %v", got.Categories, want)
	}
}

func TestUpdate_GetErrorPropagates(t *testing.T) {
	t.Parallel()

	engagements := &engagementWriterMock{
		GetFunc: func(ctx context.Context, uuid string) (*domain.Engagement, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newTestService(t, &categoryRepoMock{}, engagements)

	if _, err := svc.Update(context.Background(), "missing", []string{"a"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := normalize([]string{" b ", "a", "b", "", "  "})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalize = %v, want %v", got, want)
	}
}
