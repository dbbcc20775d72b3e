package domain

import (
	"testing"
	"time"
)

func TestEngagement_UpdateTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)

	e := Engagement{}
	e.UpdateTimestamps(now)
	if e.CreatedDate == nil || !e.CreatedDate.Equal(now) {
		t.Errorf("CreatedDate = %v, want %v", e.CreatedDate, now)
	}
	if e.LastUpdate == nil || !e.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", e.LastUpdate, now)
	}

	e2 := Engagement{CreatedDate: &created}
	e2.UpdateTimestamps(now)
	if !e2.CreatedDate.Equal(created) {
		t.Errorf("CreatedDate overwritten: %v", e2.CreatedDate)
	}
	if !e2.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", e2.LastUpdate, now)
	}
}

func TestEngagement_SetCreator(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := Engagement{
		LastUpdateByName:  "Pat Walker",
		LastUpdateByEmail: "pat@example.com",
		CreatedDate:       &now,
	}
	if err := e.SetCreator(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CreationDetails == nil || e.CreationDetails.CreatedByUser != "Pat Walker" {
		t.Fatalf("creation details not captured: %+v", e.CreationDetails)
	}
	if err := e.SetCreator(); err == nil {
		t.Error("second SetCreator should fail")
	}
}

func TestEngagement_OverrideImmutableFields(t *testing.T) {
	t.Parallel()

	now := time.Now()
	five := 5
	existing := &Engagement{
		UUID:            "e-1",
		ProjectID:       42,
		CreatedDate:     &now,
		CreationDetails: &CreationDetails{CreatedByUser: "orig"},
		Launch:          &Launch{LaunchedBy: "orig"},
		Categories:      []string{"kept"},
		ParticipantCount: &five,
	}

	incoming := &Engagement{
		UUID:       "spoofed",
		ProjectID:  99,
		Launch:     nil, // attempted un-launch
		Categories: []string{"replaced"},
	}

	allow := incoming.OverrideImmutableFields(existing, false)
	if allow {
		t.Error("project id already assigned, override must not be allowed")
	}
	if incoming.UUID != "e-1" || incoming.ProjectID != 42 {
		t.Errorf("identity not preserved: %q %d", incoming.UUID, incoming.ProjectID)
	}
	if incoming.Launch == nil || incoming.Launch.LaunchedBy != "orig" {
		t.Errorf("launch must survive an update: %+v", incoming.Launch)
	}
	if len(incoming.Categories) != 1 || incoming.Categories[0] != "kept" {
		t.Errorf("categories must come from the existing record: %v", incoming.Categories)
	}
	if incoming.ParticipantCount == nil || *incoming.ParticipantCount != 5 {
		t.Errorf("derived counts must be preserved: %v", incoming.ParticipantCount)
	}
}

func TestEngagement_OverrideImmutableFields_FirstProjectAssignment(t *testing.T) {
	t.Parallel()

	existing := &Engagement{UUID: "e-1"}
	incoming := &Engagement{ProjectID: 7}

	if !incoming.OverrideImmutableFields(existing, false) {
		t.Error("first-time project assignment must be allowed")
	}
	if incoming.ProjectID != 7 {
		t.Errorf("ProjectID = %d, want 7", incoming.ProjectID)
	}
}

func TestEngagement_OverrideImmutableFields_CategoryUpdate(t *testing.T) {
	t.Parallel()

	existing := &Engagement{UUID: "e-1", Categories: []string{"old"}}
	incoming := &Engagement{Categories: []string{"new"}}

	incoming.OverrideImmutableFields(existing, true)
	if len(incoming.Categories) != 1 || incoming.Categories[0] != "new" {
		t.Errorf("category update must keep incoming set: %v", incoming.Categories)
	}
}

func TestEngagement_Validate(t *testing.T) {
	t.Parallel()

	valid := Engagement{
		Type:         "Residency",
		CustomerName: "Fish Gym",
		Name:         "DO500",
		Region:       "emea",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Engagement)
	}{
		{"missing type", func(e *Engagement) { e.Type = "" }},
		{"missing region", func(e *Engagement) { e.Region = " " }},
		{"customer name too short", func(e *Engagement) { e.CustomerName = "ab" }},
		{"name too short", func(e *Engagement) { e.Name = "x" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
