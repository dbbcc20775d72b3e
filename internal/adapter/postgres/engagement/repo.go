// Package engagement implements the Engagement repository using PostgreSQL.
// The aggregate maps to a single row: use_cases, launch, and creation_details
// live in JSONB columns, the category tags in a TEXT[] column. The categories
// table is a separate materialized view maintained by the category package.
package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/guildworks/engagements/internal/adapter/postgres"
	"github.com/guildworks/engagements/internal/domain"
)

// Repo provides engagement persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new engagement repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ---------------------------------------------------------------------------
// Column list shared by all full-row queries
// ---------------------------------------------------------------------------

var columns = []string{
	"uuid", "engagement_type", "customer_name", "name", "region", "project_id",
	"creation_details", "launch", "use_cases", "categories",
	"additional_details", "description", "last_message",
	"last_update_by_name", "last_update_by_email",
	"location", "engagement_lead_name", "engagement_lead_email",
	"technical_lead_name", "technical_lead_email",
	"customer_contact_name", "customer_contact_email", "timezone",
	"public_reference",
	"archive_date", "start_date", "end_date", "created_date", "last_update",
	"current_state", "participant_count", "hosting_count", "artifact_count",
}

var columnList = strings.Join(columns, ", ")

// scanTargets returns the scan destinations in column order.
func scanTargets(e *domain.Engagement) []any {
	return []any{
		&e.UUID, &e.Type, &e.CustomerName, &e.Name, &e.Region, &e.ProjectID,
		&e.CreationDetails, &e.Launch, &e.UseCases, &e.Categories,
		&e.AdditionalDetails, &e.Description, &e.LastMessage,
		&e.LastUpdateByName, &e.LastUpdateByEmail,
		&e.Location, &e.EngagementLeadName, &e.EngagementLeadEmail,
		&e.TechnicalLeadName, &e.TechnicalLeadEmail,
		&e.CustomerContactName, &e.CustomerContactEmail, &e.Timezone,
		&e.PublicReference,
		&e.ArchiveDate, &e.StartDate, &e.EndDate, &e.CreatedDate, &e.LastUpdate,
		&e.CurrentState, &e.ParticipantCount, &e.HostingCount, &e.ArtifactCount,
	}
}

// values returns the column values in column order, for INSERT parameters.
func values(e *domain.Engagement) []any {
	return []any{
		e.UUID, e.Type, e.CustomerName, e.Name, e.Region, e.ProjectID,
		e.CreationDetails, e.Launch, e.UseCases, e.Categories,
		e.AdditionalDetails, e.Description, e.LastMessage,
		e.LastUpdateByName, e.LastUpdateByEmail,
		e.Location, e.EngagementLeadName, e.EngagementLeadEmail,
		e.TechnicalLeadName, e.TechnicalLeadEmail,
		e.CustomerContactName, e.CustomerContactEmail, e.Timezone,
		e.PublicReference,
		e.ArchiveDate, e.StartDate, e.EndDate, e.CreatedDate, e.LastUpdate,
		e.CurrentState, e.ParticipantCount, e.HostingCount, e.ArtifactCount,
	}
}

func scanOne(row pgx.Row) (*domain.Engagement, error) {
	var e domain.Engagement
	if err := row.Scan(scanTargets(&e)...); err != nil {
		return nil, err
	}
	normalize(&e)
	return &e, nil
}

func scanMany(rows pgx.Rows) ([]*domain.Engagement, error) {
	defer rows.Close()

	result := []*domain.Engagement{}
	for rows.Next() {
		var e domain.Engagement
		if err := rows.Scan(scanTargets(&e)...); err != nil {
			return nil, err
		}
		normalize(&e)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalize keeps the JSON representation stable: no null collections.
func normalize(e *domain.Engagement) {
	if e.Categories == nil {
		e.Categories = []string{}
	}
	if e.UseCases == nil {
		e.UseCases = []domain.UseCase{}
	}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

var getByUUIDSQL = `SELECT ` + columnList + ` FROM engagements WHERE uuid = $1`

// GetByUUID returns an engagement by its identity.
// Returns domain.ErrNotFound if no row matches.
func (r *Repo) GetByUUID(ctx context.Context, uuid string) (*domain.Engagement, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	e, err := scanOne(q.QueryRow(ctx, getByUUIDSQL, uuid))
	if err != nil {
		return nil, postgres.MapError(err, "engagement", uuid)
	}
	return e, nil
}

var getByProjectIDSQL = `SELECT ` + columnList + ` FROM engagements WHERE project_id = $1`

// GetByProjectID returns the engagement owning a mirror-store project.
// Returns domain.ErrNotFound if no row matches.
func (r *Repo) GetByProjectID(ctx context.Context, projectID int) (*domain.Engagement, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	e, err := scanOne(q.QueryRow(ctx, getByProjectIDSQL, projectID))
	if err != nil {
		return nil, postgres.MapError(err, "engagement", fmt.Sprintf("project:%d", projectID))
	}
	return e, nil
}

var getByNamesSQL = `SELECT ` + columnList + ` FROM engagements WHERE customer_name = $1 AND name = $2`

// GetByCustomerAndName returns the engagement with the given composite name.
// Returns domain.ErrNotFound if no row matches.
func (r *Repo) GetByCustomerAndName(ctx context.Context, customerName, name string) (*domain.Engagement, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	e, err := scanOne(q.QueryRow(ctx, getByNamesSQL, customerName, name))
	if err != nil {
		return nil, postgres.MapError(err, "engagement", customerName+"/"+name)
	}
	return e, nil
}

const existsSQL = `SELECT EXISTS (SELECT 1 FROM engagements WHERE uuid = $1)`

// Exists reports whether an engagement with the given identity is stored.
func (r *Repo) Exists(ctx context.Context, uuid string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var exists bool
	if err := q.QueryRow(ctx, existsSQL, uuid).Scan(&exists); err != nil {
		return false, fmt.Errorf("engagement exists: %w", err)
	}
	return exists, nil
}

const nameTakenSQL = `SELECT EXISTS (
    SELECT 1 FROM engagements WHERE customer_name = $1 AND name = $2 AND uuid <> $3
)`

// IsNameTaken reports whether another engagement already uses the composite
// name. Pass an empty excludeUUID when checking a create.
func (r *Repo) IsNameTaken(ctx context.Context, customerName, name, excludeUUID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var taken bool
	if err := q.QueryRow(ctx, nameTakenSQL, customerName, name, excludeUUID).Scan(&taken); err != nil {
		return false, fmt.Errorf("engagement name taken: %w", err)
	}
	return taken, nil
}

// List returns engagements ordered and paged by the filter.
// Returns an empty slice (not nil) when nothing matches.
func (r *Repo) List(ctx context.Context, page domain.PageFilter) ([]*domain.Engagement, error) {
	return r.Find(ctx, domain.EngagementFilter{Page: page})
}

// Find returns engagements matching the filter, ordered and paged.
// Returns an empty slice (not nil) when nothing matches.
func (r *Repo) Find(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := builder.Select(columns...).From("engagements")
	query = applyFilter(query, f)
	for _, clause := range orderBy(f.Page) {
		query = query.OrderBy(clause)
	}
	query = query.OrderBy("uuid ASC").
		Limit(uint64(f.Page.Limit())).
		Offset(uint64(f.Page.Offset()))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find engagements: %w", err)
	}

	result, err := scanMany(rows)
	if err != nil {
		return nil, fmt.Errorf("find engagements: %w", err)
	}
	return result, nil
}

// Count returns the number of engagements matching the filter, ignoring
// paging.
func (r *Repo) Count(ctx context.Context, f domain.EngagementFilter) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query := applyFilter(builder.Select("count(*)").From("engagements"), f)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count engagements: %w", err)
	}
	return count, nil
}

func applyFilter(query sq.SelectBuilder, f domain.EngagementFilter) sq.SelectBuilder {
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		query = query.Where(sq.Or{
			sq.ILike{"customer_name": pattern},
			sq.ILike{"name": pattern},
		})
	}
	if len(f.Types) > 0 {
		query = query.Where(sq.Eq{"engagement_type": f.Types})
	}
	if len(f.Regions) > 0 {
		query = query.Where(sq.Eq{"region": f.Regions})
	}
	if len(f.States) > 0 {
		query = query.Where(sq.Eq{"current_state": f.States})
	}
	if f.Category != "" {
		query = query.Where(sq.Expr("? = ANY (categories)", f.Category))
	}
	if f.MissingProject {
		query = query.Where(sq.Eq{"project_id": 0})
	}
	return query
}

const countAllSQL = `SELECT count(*) FROM engagements`

// CountAll returns the total number of stored engagements.
func (r *Repo) CountAll(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var count int
	if err := q.QueryRow(ctx, countAllSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count all engagements: %w", err)
	}
	return count, nil
}

const stateCountsSQL = `SELECT current_state, count(*) FROM engagements %s GROUP BY current_state`

// StateCounts returns per-state totals, optionally restricted to regions.
// The StateAny entry carries the grand total.
func (r *Repo) StateCounts(ctx context.Context, regions []string) (domain.StateCounts, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var (
		rows pgx.Rows
		err  error
	)
	if len(regions) > 0 {
		rows, err = q.Query(ctx, fmt.Sprintf(stateCountsSQL, "WHERE region = ANY($1)"), regions)
	} else {
		rows, err = q.Query(ctx, fmt.Sprintf(stateCountsSQL, ""))
	}
	if err != nil {
		return nil, fmt.Errorf("state counts: %w", err)
	}
	defer rows.Close()

	counts := domain.StateCounts{}
	total := 0
	for rows.Next() {
		var (
			state domain.State
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("state counts: %w", err)
		}
		counts[state] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state counts: %w", err)
	}

	counts[domain.StateAny] = total
	return counts, nil
}

const customerSuggestSQL = `
SELECT DISTINCT customer_name FROM engagements
WHERE customer_name ILIKE '%' || $1 || '%'
ORDER BY customer_name`

// SuggestCustomers returns distinct customer names matching the partial
// input, case-insensitively.
func (r *Repo) SuggestCustomers(ctx context.Context, partial string) ([]string, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, customerSuggestSQL, partial)
	if err != nil {
		return nil, fmt.Errorf("suggest customers: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("suggest customers: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest customers: %w", err)
	}

	return names, nil
}

// ---------------------------------------------------------------------------
// Use-case flattening
// ---------------------------------------------------------------------------

const listUseCasesSQL = `
SELECT
    uc->>'uuid', uc->>'title', uc->>'description',
    (uc->>'order')::int,
    (uc->>'created')::timestamptz, (uc->>'updated')::timestamptz,
    e.uuid, e.customer_name, e.name
FROM engagements e, jsonb_array_elements(e.use_cases) uc
ORDER BY e.last_update DESC NULLS LAST, (uc->>'order')::int ASC NULLS LAST
LIMIT $1 OFFSET $2`

// ListUseCases returns a flattened page across all engagements' use cases,
// newest engagement activity first.
func (r *Repo) ListUseCases(ctx context.Context, page domain.PageFilter) ([]domain.UseCase, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listUseCasesSQL, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list use cases: %w", err)
	}
	defer rows.Close()

	result := []domain.UseCase{}
	for rows.Next() {
		uc, err := scanUseCase(rows)
		if err != nil {
			return nil, fmt.Errorf("list use cases: %w", err)
		}
		result = append(result, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list use cases: %w", err)
	}

	return result, nil
}

const getUseCaseSQL = `
SELECT
    uc->>'uuid', uc->>'title', uc->>'description',
    (uc->>'order')::int,
    (uc->>'created')::timestamptz, (uc->>'updated')::timestamptz,
    e.uuid, e.customer_name, e.name
FROM engagements e, jsonb_array_elements(e.use_cases) uc
WHERE uc->>'uuid' = $1
LIMIT 1`

// GetUseCase returns one use case by identity, with its parent coordinates.
// Returns domain.ErrNotFound if no engagement carries it.
func (r *Repo) GetUseCase(ctx context.Context, uuid string) (*domain.UseCase, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, getUseCaseSQL, uuid)
	if err != nil {
		return nil, fmt.Errorf("get use case: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get use case: %w", err)
		}
		return nil, fmt.Errorf("use case %s: %w", uuid, domain.ErrNotFound)
	}
	uc, err := scanUseCase(rows)
	if err != nil {
		return nil, fmt.Errorf("get use case: %w", err)
	}
	return &uc, nil
}

func scanUseCase(rows pgx.Rows) (domain.UseCase, error) {
	var (
		uc          domain.UseCase
		title, desc *string
	)
	err := rows.Scan(
		&uc.UUID, &title, &desc, &uc.Order, &uc.Created, &uc.Updated,
		&uc.EngagementUUID, &uc.CustomerName, &uc.Name,
	)
	if err != nil {
		return domain.UseCase{}, err
	}
	if title != nil {
		uc.Title = *title
	}
	if desc != nil {
		uc.Description = *desc
	}
	return uc, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

var insertSQL = func() string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO engagements (%s) VALUES (%s)",
		columnList, strings.Join(placeholders, ", "),
	)
}()

// Create inserts a new engagement.
// Returns domain.ErrConflict when the (customer_name, name) pair is taken.
func (r *Repo) Create(ctx context.Context, e *domain.Engagement) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, insertSQL, values(e)...); err != nil {
		return postgres.MapError(err, "engagement", e.UUID)
	}
	return nil
}

var updateSQL = func() string {
	assignments := make([]string, 0, len(columns)-1)
	for i, col := range columns[1:] {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+2))
	}
	return fmt.Sprintf(
		"UPDATE engagements SET %s WHERE uuid = $1",
		strings.Join(assignments, ", "),
	)
}()

// Update replaces the full row.
// Returns domain.ErrNotFound when the engagement does not exist and
// domain.ErrConflict when the rename collides with another engagement.
func (r *Repo) Update(ctx context.Context, e *domain.Engagement) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, updateSQL, values(e)...)
	if err != nil {
		return postgres.MapError(err, "engagement", e.UUID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("engagement %s: %w", e.UUID, domain.ErrNotFound)
	}
	return nil
}

const deleteSQL = `DELETE FROM engagements WHERE uuid = $1`

// Delete removes an engagement; its category rows cascade.
// Returns domain.ErrNotFound when the engagement does not exist.
func (r *Repo) Delete(ctx context.Context, uuid string) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, deleteSQL, uuid)
	if err != nil {
		return postgres.MapError(err, "engagement", uuid)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("engagement %s: %w", uuid, domain.ErrNotFound)
	}
	return nil
}

const updateCountsSQL = `
UPDATE engagements SET
    participant_count = COALESCE($2, participant_count),
    hosting_count     = COALESCE($3, hosting_count),
    artifact_count    = COALESCE($4, artifact_count)
WHERE uuid = $1`

// UpdateCounts stores the derived counts. Nil values keep the stored ones.
// Count updates deliberately do not touch last_update.
func (r *Repo) UpdateCounts(ctx context.Context, uuid string, participants, hosting, artifacts *int) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, updateCountsSQL, uuid, participants, hosting, artifacts); err != nil {
		return postgres.MapError(err, "engagement", uuid)
	}
	return nil
}

const updateProjectIDSQL = `UPDATE engagements SET project_id = $2 WHERE uuid = $1`

// UpdateProjectID records the mirror project identity without bumping
// last_update and without emitting any signal. Assign-once semantics are
// enforced by the write path, not here: the repair path may legitimately
// re-record an id after the mirror project was recreated.
func (r *Repo) UpdateProjectID(ctx context.Context, uuid string, projectID int) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, updateProjectIDSQL, uuid, projectID)
	if err != nil {
		return postgres.MapError(err, "engagement", uuid)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "engagement", uuid)
	}
	return nil
}

const updateStateSQL = `UPDATE engagements SET current_state = $2 WHERE uuid = $1 AND current_state <> $2`

// UpdateState stores a newly computed lifecycle state. Reports whether the
// stored state actually changed.
func (r *Repo) UpdateState(ctx context.Context, uuid string, state domain.State) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, updateStateSQL, uuid, state)
	if err != nil {
		return false, postgres.MapError(err, "engagement", uuid)
	}
	return tag.RowsAffected() > 0, nil
}

const updateLastUpdateSQL = `UPDATE engagements SET last_update = $2 WHERE uuid = $1`

// UpdateLastUpdate stores the last-update timestamp without touching
// anything else, for backfilling records that predate the column.
func (r *Repo) UpdateLastUpdate(ctx context.Context, uuid string, ts time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, updateLastUpdateSQL, uuid, ts); err != nil {
		return postgres.MapError(err, "engagement", uuid)
	}
	return nil
}

const listWithoutLastUpdateSQL = `SELECT uuid FROM engagements WHERE last_update IS NULL`

// ListWithoutLastUpdate returns identities of engagements missing the
// last-update timestamp.
func (r *Repo) ListWithoutLastUpdate(ctx context.Context) ([]string, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listWithoutLastUpdateSQL)
	if err != nil {
		return nil, fmt.Errorf("list without last_update: %w", err)
	}
	defer rows.Close()

	uuids := []string{}
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, fmt.Errorf("list without last_update: %w", err)
		}
		uuids = append(uuids, uuid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list without last_update: %w", err)
	}

	return uuids, nil
}

const purgeSQL = `DELETE FROM engagements`

// Purge removes every engagement; category rows cascade. Used by the
// refresh path inside a transaction, never exposed over the API.
func (r *Repo) Purge(ctx context.Context) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, purgeSQL); err != nil {
		return fmt.Errorf("purge engagements: %w", err)
	}
	return nil
}

// PersistAll inserts a batch of engagements in one round trip.
func (r *Repo) PersistAll(ctx context.Context, engagements []*domain.Engagement) error {
	if len(engagements) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.db)

	batch := &pgx.Batch{}
	for _, e := range engagements {
		batch.Queue(insertSQL, values(e)...)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for _, e := range engagements {
		if _, err := results.Exec(); err != nil {
			return postgres.MapError(err, "engagement", e.UUID)
		}
	}
	return nil
}
