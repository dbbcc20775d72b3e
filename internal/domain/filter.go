package domain

import "strings"

// PageFilter carries paging and sort parameters through query operations.
// Sort is a comma-separated list of "field" or "field|DESC" entries; the
// repository layer validates field names against a whitelist and always
// appends uuid as the final tie-breaker.
type PageFilter struct {
	Page     int
	PageSize int
	Sort     string
}

// DefaultPageFilter matches the original API default: newest activity first.
func DefaultPageFilter() PageFilter {
	return PageFilter{Page: 0, PageSize: 5000, Sort: "last_update|DESC"}
}

// Offset returns the number of rows to skip.
func (f PageFilter) Offset() int {
	if f.Page < 0 {
		return 0
	}
	return f.Page * f.Limit()
}

// Limit returns the page size, falling back to the default when unset.
func (f PageFilter) Limit() int {
	if f.PageSize <= 0 {
		return 5000
	}
	return f.PageSize
}

// SortField is one parsed entry of the Sort expression.
type SortField struct {
	Field      string
	Descending bool
}

// SortFields parses the Sort expression. An empty expression yields the
// default ordering.
func (f PageFilter) SortFields() []SortField {
	if strings.TrimSpace(f.Sort) == "" {
		return []SortField{{Field: "last_update", Descending: true}}
	}

	var fields []SortField
	for _, part := range strings.Split(f.Sort, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, found := strings.Cut(part, "|")
		fields = append(fields, SortField{
			Field:      strings.TrimSpace(name),
			Descending: found && strings.EqualFold(strings.TrimSpace(dir), "DESC"),
		})
	}
	if len(fields) == 0 {
		return []SortField{{Field: "last_update", Descending: true}}
	}
	return fields
}

// EngagementFilter defines parameters for searching engagements.
type EngagementFilter struct {
	// Search performs a case-insensitive substring match on customer name
	// and engagement name. Empty string means no text filter.
	Search string

	// Types restricts results to the given engagement types.
	Types []string

	// Regions restricts results to the given regions.
	Regions []string

	// States restricts results to the given lifecycle states. StateAny is
	// expanded by the caller, never passed here.
	States []State

	// Category keeps only engagements tagged with the given category.
	Category string

	// MissingProject keeps only engagements not yet mirrored (no project
	// assigned).
	MissingProject bool

	Page PageFilter
}
