package engagement

import (
	"github.com/guildworks/engagements/internal/domain"
)

// sortColumns whitelists the ORDER BY columns accepted from callers.
// Anything else falls back to last_update.
var sortColumns = map[string]string{
	"uuid":          "uuid",
	"customer_name": "customer_name",
	"name":          "name",
	"last_update":   "last_update",
	"start_date":    "start_date",
	"end_date":      "end_date",
	"created_date":  "created_date",
	"current_state": "current_state",
}

// orderBy translates the page filter's sort fields into ORDER BY clauses,
// applying the whitelist.
func orderBy(page domain.PageFilter) []string {
	fields := page.SortFields()
	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			col = "last_update"
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC NULLS LAST"
		}
		clauses = append(clauses, col+" "+dir)
	}
	return clauses
}
