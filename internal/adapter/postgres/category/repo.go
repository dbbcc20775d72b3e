// Package category implements the category repository: a queryable
// projection of the category tags carried on engagements, reconciled after
// every engagement write.
package category

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guildworks/engagements/internal/adapter/postgres"
	"github.com/guildworks/engagements/internal/domain"
)

// Repo provides category persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new category repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const listByEngagementSQL = `
SELECT uuid, engagement_uuid, name, region, created
FROM categories
WHERE engagement_uuid = $1
ORDER BY name`

// ListByEngagement returns the category rows projected from one engagement,
// ordered by name. Returns an empty slice (not nil) when there are none.
func (r *Repo) ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listByEngagementSQL, engagementUUID)
	if err != nil {
		return nil, fmt.Errorf("list categories by engagement: %w", err)
	}

	result, err := scanCategories(rows)
	if err != nil {
		return nil, fmt.Errorf("list categories by engagement: %w", err)
	}
	return result, nil
}

const rollupSQL = `
SELECT name, count(*) AS total
FROM categories
%s
GROUP BY name
ORDER BY total DESC, name ASC
LIMIT $%d OFFSET $%d`

// Rollup returns distinct category names with their usage counts, most used
// first. A non-empty search narrows by ILIKE; regions narrow by region.
func (r *Repo) Rollup(ctx context.Context, search string, regions []string, page domain.PageFilter) ([]domain.CategoryCount, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	where := ""
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where = fmt.Sprintf("WHERE name ILIKE $%d", len(args))
	}
	if len(regions) > 0 {
		args = append(args, regions)
		if where == "" {
			where = fmt.Sprintf("WHERE region = ANY($%d)", len(args))
		} else {
			where += fmt.Sprintf(" AND region = ANY($%d)", len(args))
		}
	}

	sql := fmt.Sprintf(rollupSQL, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit(), page.Offset())

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("category rollup: %w", err)
	}
	defer rows.Close()

	result := []domain.CategoryCount{}
	for rows.Next() {
		var cc domain.CategoryCount
		if err := rows.Scan(&cc.Name, &cc.Count); err != nil {
			return nil, fmt.Errorf("category rollup: %w", err)
		}
		result = append(result, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category rollup: %w", err)
	}

	return result, nil
}

const suggestSQL = `
SELECT DISTINCT name FROM categories
WHERE name ILIKE '%' || $1 || '%'
ORDER BY name`

// Suggest returns distinct category names matching the partial input.
func (r *Repo) Suggest(ctx context.Context, partial string) ([]string, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, suggestSQL, partial)
	if err != nil {
		return nil, fmt.Errorf("suggest categories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("suggest categories: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest categories: %w", err)
	}

	return names, nil
}

const deleteByEngagementSQL = `DELETE FROM categories WHERE engagement_uuid = $1`

// DeleteByEngagement removes every category row projected from one
// engagement. Deleting for an engagement with no rows is not an error.
func (r *Repo) DeleteByEngagement(ctx context.Context, engagementUUID string) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, deleteByEngagementSQL, engagementUUID); err != nil {
		return postgres.MapError(err, "category", engagementUUID)
	}
	return nil
}

const insertSQL = `
INSERT INTO categories (uuid, engagement_uuid, name, region, created)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (engagement_uuid, name) DO NOTHING`

// ReplaceForEngagement swaps the projected rows for one engagement with the
// given set. Meant to run inside a transaction so readers never observe the
// intermediate empty state.
func (r *Repo) ReplaceForEngagement(ctx context.Context, engagementUUID string, categories []domain.Category) error {
	if err := r.DeleteByEngagement(ctx, engagementUUID); err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.db)

	batch := &pgx.Batch{}
	for _, c := range categories {
		batch.Queue(insertSQL, c.UUID, engagementUUID, c.Name, c.Region, c.Created)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range categories {
		if _, err := results.Exec(); err != nil {
			return postgres.MapError(err, "category", engagementUUID)
		}
	}
	return nil
}

const purgeSQL = `DELETE FROM categories`

// Purge removes every category row, for the full refresh path.
func (r *Repo) Purge(ctx context.Context) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, purgeSQL); err != nil {
		return fmt.Errorf("purge categories: %w", err)
	}
	return nil
}

func scanCategories(rows pgx.Rows) ([]domain.Category, error) {
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.UUID, &c.EngagementUUID, &c.Name, &c.Region, &c.Created); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
