// Package domain holds the core entities of the engagement service:
// the Engagement aggregate, its sub-entities, and the lifecycle state
// machine. Types here carry no persistence or transport concerns.
package domain

import (
	"strings"
	"time"
)

// Engagement is the aggregate root. The (CustomerName, Name) pair is unique
// across all engagements and, slugified, forms the mirror-store path
// customer-group/engagement-group/project.
type Engagement struct {
	UUID         string `json:"uuid"`
	Type         string `json:"engagement_type"`
	CustomerName string `json:"customer_name"`
	Name         string `json:"name"`
	Region       string `json:"engagement_region"`

	CreationDetails *CreationDetails `json:"creation_details,omitempty"`
	Launch          *Launch          `json:"launch,omitempty"`

	Categories []string  `json:"categories"`
	UseCases   []UseCase `json:"use_cases"`

	AdditionalDetails    string `json:"additional_details,omitempty"`
	Description          string `json:"description,omitempty"`
	LastMessage          string `json:"last_message,omitempty"`
	LastUpdateByName     string `json:"last_update_by_name,omitempty"`
	LastUpdateByEmail    string `json:"last_update_by_email,omitempty"`
	Location             string `json:"location,omitempty"`
	EngagementLeadName   string `json:"engagement_lead_name,omitempty"`
	EngagementLeadEmail  string `json:"engagement_lead_email,omitempty"`
	TechnicalLeadName    string `json:"technical_lead_name,omitempty"`
	TechnicalLeadEmail   string `json:"technical_lead_email,omitempty"`
	CustomerContactName  string `json:"customer_contact_name,omitempty"`
	CustomerContactEmail string `json:"customer_contact_email,omitempty"`
	Timezone             string `json:"timezone,omitempty"`

	PublicReference *bool `json:"public_reference,omitempty"`

	// ProjectID is the mirror-store project identity. Zero means "not yet
	// mirrored". Once set it is never reassigned.
	ProjectID int `json:"project_id,omitempty"`

	ArchiveDate *time.Time `json:"archive_date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`

	CurrentState State `json:"current_state,omitempty"`

	ParticipantCount *int `json:"participant_count,omitempty"`
	HostingCount     *int `json:"hosting_count,omitempty"`
	ArtifactCount    *int `json:"artifact_count,omitempty"`

	// MirrorRetry marks a caller-requested resend so the mirror commit
	// message can be prefixed accordingly. Never persisted.
	MirrorRetry bool `json:"-"`
}

// CreationDetails records who created the engagement. Immutable after the
// first set.
type CreationDetails struct {
	CreatedByUser  string     `json:"created_by_user,omitempty"`
	CreatedByEmail string     `json:"created_by_email,omitempty"`
	CreatedOn      *time.Time `json:"created_on,omitempty"`
}

// LaunchMessage is stored as the last message when an engagement launches,
// so the mirror can tell a launch commit apart from a summary update.
const LaunchMessage = "🚢 🏴‍☠️ 🚀"

// Launch records the one-time launch of an engagement. A launched
// engagement cannot be un-launched through a normal update.
type Launch struct {
	LaunchedDateTime *time.Time `json:"launched_date_time,omitempty"`
	LaunchedBy       string     `json:"launched_by,omitempty"`
	LaunchedByEmail  string     `json:"launched_by_email,omitempty"`
}

// UseCase is an ordered sub-entity of an Engagement. Identity is assigned
// on first save; Created/Updated follow copy-on-write semantics.
type UseCase struct {
	UUID        string     `json:"uuid,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`

	// Set only by the flattening query, never on write.
	EngagementUUID string `json:"engagement_uuid,omitempty"`
	CustomerName   string `json:"customer_name,omitempty"`
	Name           string `json:"name,omitempty"`
}

// Clean trims the fields that feed the mirror-store path.
func (e *Engagement) Clean() {
	e.CustomerName = strings.TrimSpace(e.CustomerName)
	e.Name = strings.TrimSpace(e.Name)
}

// UpdateTimestamps sets CreatedDate on first persist and always bumps
// LastUpdate.
func (e *Engagement) UpdateTimestamps(now time.Time) {
	if e.CreatedDate == nil {
		e.CreatedDate = &now
	}
	e.LastUpdate = &now
}

// SetCreator captures the creation details from the current updater
// identity. It may only be called once.
func (e *Engagement) SetCreator() error {
	if e.CreationDetails != nil {
		return NewValidationError("creation_details", "creator already set")
	}
	e.CreationDetails = &CreationDetails{
		CreatedByUser:  e.LastUpdateByName,
		CreatedByEmail: e.LastUpdateByEmail,
		CreatedOn:      e.CreatedDate,
	}
	return nil
}

// OverrideImmutableFields copies the fields a caller may never change from
// the existing record onto the incoming one. Fields set once after creation
// (ProjectID, Launch) are kept from the existing record when already set.
// Returns true when the existing record has no project id yet, meaning a
// first-time assignment is allowed and counts as a change.
func (e *Engagement) OverrideImmutableFields(existing *Engagement, categoryUpdate bool) bool {
	e.UUID = existing.UUID
	e.CreatedDate = existing.CreatedDate
	e.CreationDetails = existing.CreationDetails
	e.ParticipantCount = existing.ParticipantCount
	e.ArtifactCount = existing.ArtifactCount
	e.HostingCount = existing.HostingCount

	if !categoryUpdate {
		e.Categories = existing.Categories
	}

	allowOverride := false
	if existing.ProjectID == 0 {
		allowOverride = true
	} else {
		e.ProjectID = existing.ProjectID
	}

	// Launch happens at most once; a normal update can neither change nor
	// remove it.
	if existing.Launch != nil {
		e.Launch = existing.Launch
	}

	return allowOverride
}

// Validate checks the request-supplied fields.
func (e *Engagement) Validate() error {
	var errs []FieldError

	if strings.TrimSpace(e.Type) == "" {
		errs = append(errs, FieldError{Field: "engagement_type", Message: "is required"})
	}
	if strings.TrimSpace(e.Region) == "" {
		errs = append(errs, FieldError{Field: "engagement_region", Message: "is required"})
	}
	errs = append(errs, validateName("customer_name", e.CustomerName)...)
	errs = append(errs, validateName("name", e.Name)...)

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func validateName(field, value string) []FieldError {
	v := strings.TrimSpace(value)
	if len(v) < 3 || len(v) > 255 {
		return []FieldError{{Field: field, Message: "must be between 3 and 255 characters"}}
	}
	return nil
}
