package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildworks/engagements/internal/domain"
)

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func baseEngagement() *domain.Engagement {
	return &domain.Engagement{
		UUID:         "e-1",
		Type:         "Residency",
		CustomerName: "Acme Corp",
		Name:         "Spring Rollout",
		Region:       "emea",
		Description:  "initial",
		UseCases: []domain.UseCase{
			{UUID: "uc-1", Title: "First", Order: intPtr(0)},
			{UUID: "uc-2", Title: "Second", Order: intPtr(1)},
		},
		Categories: []string{"kubernetes", "pipelines"},
	}
}

func TestCompareEngagements_NoChanges(t *testing.T) {
	t.Parallel()

	old := baseEngagement()
	new := baseEngagement()

	cs := CompareEngagements(old, new)

	assert.False(t, cs.HasChanges())
	assert.Equal(t, "no changes", cs.Describe())
}

func TestCompareEngagements_IgnoredFields(t *testing.T) {
	t.Parallel()

	now := time.Now()
	old := baseEngagement()
	new := baseEngagement()
	new.UUID = "different"
	new.ProjectID = 4242
	new.CreatedDate = timePtr(now)
	new.LastUpdate = timePtr(now)
	new.LastMessage = "2 change(s):"
	new.LastUpdateByName = "Someone Else"
	new.LastUpdateByEmail = "else@example.com"
	new.CurrentState = domain.StateActive
	new.ParticipantCount = intPtr(9)
	new.CreationDetails = &domain.CreationDetails{CreatedByUser: "bot"}
	new.MirrorRetry = true

	cs := CompareEngagements(old, new)

	assert.False(t, cs.HasChanges())
}

func TestCompareEngagements_ScalarChange(t *testing.T) {
	t.Parallel()

	old := baseEngagement()
	new := baseEngagement()
	new.Description = "updated"
	new.Region = "na"

	cs := CompareEngagements(old, new)

	require.Len(t, cs.Changes, 2)
	assert.Contains(t, cs.Describe(), "engagement_region changed: 'emea' to 'na'")
	assert.Contains(t, cs.Describe(), "description changed: 'initial' to 'updated'")
}

func TestCompareEngagements_DateChange(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	old := baseEngagement()
	old.StartDate = timePtr(start)
	new := baseEngagement()
	new.StartDate = timePtr(start.AddDate(0, 0, 7))

	cs := CompareEngagements(old, new)

	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "start_date", cs.Changes[0].Field)
}

func TestCompareEngagements_LaunchAddedAndRemoved(t *testing.T) {
	t.Parallel()

	launch := &domain.Launch{LaunchedBy: "Jo Dev", LaunchedDateTime: timePtr(time.Now())}

	old := baseEngagement()
	new := baseEngagement()
	new.Launch = launch

	cs := CompareEngagements(old, new)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "launch added: 'Jo Dev'", cs.Changes[0].String())

	cs = CompareEngagements(new, old)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "launch removed: 'Jo Dev'", cs.Changes[0].String())
}

func TestCompareEngagements_UseCaseReorderIsNotAChange(t *testing.T) {
	t.Parallel()

	old := baseEngagement()
	new := baseEngagement()
	// Only slice position moves; per-element order values are unchanged.
	new.UseCases = []domain.UseCase{new.UseCases[1], new.UseCases[0]}

	cs := CompareEngagements(old, new)

	assert.False(t, cs.HasChanges())
}

func TestCompareEngagements_UseCaseInsertedInMiddle(t *testing.T) {
	t.Parallel()

	old := baseEngagement()
	new := baseEngagement()
	new.UseCases = []domain.UseCase{
		old.UseCases[0],
		{Title: "Inserted"},
		old.UseCases[1],
	}

	cs := CompareEngagements(old, new)

	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "use_case added: 'Inserted'", cs.Changes[0].String())
}

func TestCompareEngagements_UseCaseEditedAndRemoved(t *testing.T) {
	t.Parallel()

	old := baseEngagement()
	new := baseEngagement()
	new.UseCases = []domain.UseCase{
		{UUID: "uc-1", Title: "First renamed", Order: intPtr(0)},
	}

	cs := CompareEngagements(old, new)

	require.Len(t, cs.Changes, 2)
	assert.Equal(t, "use_case changed: 'First' to 'First renamed'", cs.Changes[0].String())
	assert.Equal(t, "use_case removed: 'Second'", cs.Changes[1].String())
}

func TestUseCaseChanged_TimestampsIgnored(t *testing.T) {
	t.Parallel()

	now := time.Now()
	old := domain.UseCase{UUID: "u", Title: "T", Description: "D", Order: intPtr(2)}
	new := domain.UseCase{
		UUID: "u", Title: "T", Description: "D", Order: intPtr(2),
		Created: timePtr(now), Updated: timePtr(now),
		EngagementUUID: "e-1", CustomerName: "Acme", Name: "Rollout",
	}

	assert.False(t, UseCaseChanged(old, new))

	new.Description = "D2"
	assert.True(t, UseCaseChanged(old, new))
}

func TestCompareCategorySets(t *testing.T) {
	t.Parallel()

	t.Run("order insensitive", func(t *testing.T) {
		cs := CompareCategorySets([]string{"a", "b"}, []string{"b", "a"})
		assert.False(t, cs.HasChanges())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		cs := CompareCategorySets([]string{"a", "a", "b"}, []string{"b", "a"})
		assert.False(t, cs.HasChanges())
	})

	t.Run("added and removed", func(t *testing.T) {
		cs := CompareCategorySets([]string{"a", "b"}, []string{"b", "c"})
		require.Len(t, cs.Changes, 2)
		assert.Equal(t, "category removed: 'a'", cs.Changes[0].String())
		assert.Equal(t, "category added: 'c'", cs.Changes[1].String())
	})
}

func TestCompareHookConfigs(t *testing.T) {
	t.Parallel()

	a := domain.HookConfig{ID: 1, Name: "status", BaseURL: "https://hooks.example.com/status", PushEvent: true}
	b := domain.HookConfig{ID: 2, Name: "audit", BaseURL: "https://hooks.example.com/audit", Token: "s3cret"}

	t.Run("identical modulo ids", func(t *testing.T) {
		a2, b2 := a, b
		a2.ID = 99
		b2.ID = 98
		assert.False(t, CompareHookConfigs([]domain.HookConfig{a, b}, []domain.HookConfig{b2, a2}))
	})

	t.Run("field change detected", func(t *testing.T) {
		a2 := a
		a2.PushEventsBranchFilter = "main"
		assert.True(t, CompareHookConfigs([]domain.HookConfig{a, b}, []domain.HookConfig{a2, b}))
	})

	t.Run("length change detected", func(t *testing.T) {
		assert.True(t, CompareHookConfigs([]domain.HookConfig{a, b}, []domain.HookConfig{a}))
	})

	t.Run("url change detected", func(t *testing.T) {
		a2 := a
		a2.BaseURL = "https://hooks.example.com/v2/status"
		assert.True(t, CompareHookConfigs([]domain.HookConfig{a, b}, []domain.HookConfig{a2, b}))
	})
}

func TestChangeSetDescribe(t *testing.T) {
	t.Parallel()

	var cs ChangeSet
	cs.add("description", "old", "new")
	cs.add("category", "", "ansible")

	got := cs.Describe()
	assert.Equal(t, "2 change(s):\n  description changed: 'old' to 'new'\n  category added: 'ansible'", got)
}
