// Package hookcfg implements the webhook-configuration cache repository.
// The runtime-configuration collaborator owns the data; this table is a
// local copy replaced wholesale when a change notification arrives.
package hookcfg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guildworks/engagements/internal/adapter/postgres"
	"github.com/guildworks/engagements/internal/domain"
)

// Repo provides webhook-configuration persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new webhook-configuration repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const listSQL = `
SELECT id, name, base_url, push_event, push_events_branch_filter, token, enabled_after_archive
FROM hook_configs
ORDER BY base_url`

// List returns every cached webhook configuration ordered by base URL.
// Returns an empty slice (not nil) when the cache is empty.
func (r *Repo) List(ctx context.Context) ([]domain.HookConfig, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list hook configs: %w", err)
	}
	defer rows.Close()

	result := []domain.HookConfig{}
	for rows.Next() {
		var h domain.HookConfig
		err := rows.Scan(
			&h.ID, &h.Name, &h.BaseURL, &h.PushEvent,
			&h.PushEventsBranchFilter, &h.Token, &h.EnabledAfterArchive,
		)
		if err != nil {
			return nil, fmt.Errorf("list hook configs: %w", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hook configs: %w", err)
	}

	return result, nil
}

const purgeSQL = `DELETE FROM hook_configs`

const insertSQL = `
INSERT INTO hook_configs (name, base_url, push_event, push_events_branch_filter, token, enabled_after_archive)
VALUES ($1, $2, $3, $4, $5, $6)`

// ReplaceAll swaps the cached set wholesale. Meant to run inside a
// transaction so readers never observe the intermediate empty state.
func (r *Repo) ReplaceAll(ctx context.Context, configs []domain.HookConfig) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, purgeSQL); err != nil {
		return fmt.Errorf("purge hook configs: %w", err)
	}
	if len(configs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, h := range configs {
		batch.Queue(insertSQL,
			h.Name, h.BaseURL, h.PushEvent,
			h.PushEventsBranchFilter, h.Token, h.EnabledAfterArchive,
		)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for _, h := range configs {
		if _, err := results.Exec(); err != nil {
			return postgres.MapError(err, "hook_config", h.BaseURL)
		}
	}
	return nil
}
