// Package diff implements the change-detection engine: explicit
// field-by-field comparison of engagement versions producing a typed
// change-set whose rendered form becomes the mirror-store commit message.
//
// Identity, creation metadata, updater identity, derived counts, the cached
// state, and the mirror project id are never compared; a record that differs
// only in those fields reports no changes.
package diff

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guildworks/engagements/internal/domain"
)

// Change is one detected difference.
type Change struct {
	Field string
	Old   string
	New   string
}

func (c Change) String() string {
	switch {
	case c.Old == "":
		return fmt.Sprintf("%s added: '%s'", c.Field, c.New)
	case c.New == "":
		return fmt.Sprintf("%s removed: '%s'", c.Field, c.Old)
	default:
		return fmt.Sprintf("%s changed: '%s' to '%s'", c.Field, c.Old, c.New)
	}
}

// ChangeSet is an ordered list of detected differences.
type ChangeSet struct {
	Changes []Change
}

// HasChanges reports whether any difference was detected.
func (cs ChangeSet) HasChanges() bool { return len(cs.Changes) > 0 }

// Describe renders the change-set as a human-readable, ordered description.
func (cs ChangeSet) Describe() string {
	if !cs.HasChanges() {
		return "no changes"
	}
	lines := make([]string, 0, len(cs.Changes)+1)
	lines = append(lines, fmt.Sprintf("%d change(s):", len(cs.Changes)))
	for _, c := range cs.Changes {
		lines = append(lines, "  "+c.String())
	}
	return strings.Join(lines, "\n")
}

func (cs *ChangeSet) add(field, old, new string) {
	cs.Changes = append(cs.Changes, Change{Field: field, Old: old, New: new})
}

func (cs *ChangeSet) cmp(field, old, new string) {
	if old != new {
		cs.add(field, old, new)
	}
}

func (cs *ChangeSet) cmpTime(field string, old, new *time.Time) {
	cs.cmp(field, formatTime(old), formatTime(new))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b)
}

// CompareEngagements compares two versions of an engagement, excluding the
// ignored fields listed in the package comment. The use-case sub-collection
// is compared by identity so that reordering or a single inserted element
// does not report every element as changed; the category set is compared
// with set semantics.
func CompareEngagements(old, new *domain.Engagement) ChangeSet {
	var cs ChangeSet

	cs.cmp("engagement_type", old.Type, new.Type)
	cs.cmp("customer_name", old.CustomerName, new.CustomerName)
	cs.cmp("name", old.Name, new.Name)
	cs.cmp("engagement_region", old.Region, new.Region)
	cs.cmp("description", old.Description, new.Description)
	cs.cmp("additional_details", old.AdditionalDetails, new.AdditionalDetails)
	cs.cmp("location", old.Location, new.Location)
	cs.cmp("engagement_lead_name", old.EngagementLeadName, new.EngagementLeadName)
	cs.cmp("engagement_lead_email", old.EngagementLeadEmail, new.EngagementLeadEmail)
	cs.cmp("technical_lead_name", old.TechnicalLeadName, new.TechnicalLeadName)
	cs.cmp("technical_lead_email", old.TechnicalLeadEmail, new.TechnicalLeadEmail)
	cs.cmp("customer_contact_name", old.CustomerContactName, new.CustomerContactName)
	cs.cmp("customer_contact_email", old.CustomerContactEmail, new.CustomerContactEmail)
	cs.cmp("timezone", old.Timezone, new.Timezone)
	cs.cmp("public_reference", formatBool(old.PublicReference), formatBool(new.PublicReference))

	cs.cmpTime("start_date", old.StartDate, new.StartDate)
	cs.cmpTime("end_date", old.EndDate, new.EndDate)
	cs.cmpTime("archive_date", old.ArchiveDate, new.ArchiveDate)

	compareLaunch(&cs, old.Launch, new.Launch)
	compareCategories(&cs, old.Categories, new.Categories)
	compareUseCaseCollections(&cs, old.UseCases, new.UseCases)

	return cs
}

func compareLaunch(cs *ChangeSet, old, new *domain.Launch) {
	switch {
	case old == nil && new != nil:
		cs.add("launch", "", new.LaunchedBy)
	case old != nil && new == nil:
		cs.add("launch", old.LaunchedBy, "")
	}
}

// CompareCategorySets compares two category collections with set semantics:
// element order is irrelevant and duplicates collapse.
func CompareCategorySets(old, new []string) ChangeSet {
	var cs ChangeSet
	compareCategories(&cs, old, new)
	return cs
}

func compareCategories(cs *ChangeSet, old, new []string) {
	oldSet := toSet(old)
	newSet := toSet(new)

	for _, name := range sortedKeys(oldSet) {
		if !newSet[name] {
			cs.add("category", name, "")
		}
	}
	for _, name := range sortedKeys(newSet) {
		if !oldSet[name] {
			cs.add("category", "", name)
		}
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UseCaseChanged compares the content fields of a use case. Identity,
// timestamps, and the aggregation-only parent fields are ignored.
func UseCaseChanged(old, new domain.UseCase) bool {
	if old.Title != new.Title || old.Description != new.Description {
		return true
	}
	return orderValue(old.Order) != orderValue(new.Order)
}

func orderValue(o *int) int {
	if o == nil {
		return 0
	}
	return *o
}

// compareUseCaseCollections matches use cases by identity. Elements without
// an identity are additions; identities missing from the new collection are
// removals; matched pairs report a single change when their content differs.
// A pure reordering therefore reports nothing.
func compareUseCaseCollections(cs *ChangeSet, old, new []domain.UseCase) {
	oldByUUID := make(map[string]domain.UseCase, len(old))
	for _, uc := range old {
		if uc.UUID != "" {
			oldByUUID[uc.UUID] = uc
		}
	}

	seen := make(map[string]bool, len(new))
	for _, uc := range new {
		if uc.UUID == "" {
			cs.add("use_case", "", uc.Title)
			continue
		}
		seen[uc.UUID] = true
		prev, ok := oldByUUID[uc.UUID]
		if !ok {
			cs.add("use_case", "", uc.Title)
			continue
		}
		if UseCaseChanged(prev, uc) {
			cs.add("use_case", prev.Title, uc.Title)
		}
	}

	for _, uc := range old {
		if uc.UUID != "" && !seen[uc.UUID] {
			cs.add("use_case", uc.Title, "")
		}
	}
}

// CompareHookConfigs compares two webhook configuration lists keyed by base
// URL, ignoring local ids. Used to gate the cache replace on a change
// notification that may carry data we already have.
func CompareHookConfigs(old, new []domain.HookConfig) bool {
	if len(old) != len(new) {
		return true
	}

	byURL := make(map[string]domain.HookConfig, len(old))
	for _, h := range old {
		byURL[h.BaseURL] = h
	}

	for _, h := range new {
		prev, ok := byURL[h.BaseURL]
		if !ok {
			return true
		}
		if prev.Name != h.Name || prev.PushEvent != h.PushEvent ||
			prev.PushEventsBranchFilter != h.PushEventsBranchFilter ||
			prev.Token != h.Token || prev.EnabledAfterArchive != h.EnabledAfterArchive {
			return true
		}
	}

	return false
}
