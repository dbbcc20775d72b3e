package domain

import "time"

// Category is one row of the denormalized category view: one row per
// (engagement, category-name) pair. The Engagement's Categories set is the
// source of truth; this collection is a query-optimized copy kept in sync
// by the category service.
type Category struct {
	UUID           string     `json:"uuid"`
	EngagementUUID string     `json:"engagement_uuid"`
	Name           string     `json:"name"`
	Region         string     `json:"region"`
	Created        *time.Time `json:"created,omitempty"`
}

// CategoryCount is a rollup row: how many engagements use a category name.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
