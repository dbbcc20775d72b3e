package domain

// HookConfig describes a webhook attached to every mirror-store project.
// The set is owned by the config collaborator and cached locally; the cache
// refreshes when empty or on an explicit change notification.
type HookConfig struct {
	ID                     int64  `json:"-"`
	Name                   string `json:"name"`
	BaseURL                string `json:"base_url"`
	PushEvent              bool   `json:"push_event"`
	PushEventsBranchFilter string `json:"push_events_branch_filter,omitempty"`
	Token                  string `json:"token,omitempty"`

	// EnabledAfterArchive keeps the webhook attached to projects whose
	// engagement has already reached the PAST state.
	EnabledAfterArchive bool `json:"enabled_after_archive"`
}
