package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// RepositoryConfig wires the bun-backed activity repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type activityStore interface {
	repository.Repository[*Record]
}

// Repository persists activity rows and answers the aggregate queries behind
// the summary/stats read models. Every read and write is scoped to the
// ambient tenant on the context; a context with no tenant bound (and not
// explicitly marked cross-tenant) fails fast.
type Repository struct {
	activityStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing both ActivityRepository
// and ActivityAggregator.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("activity: db required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(entry *Record) uuid.UUID {
				if entry == nil {
					return uuid.Nil
				}
				return entry.ID
			},
			SetID: func(entry *Record, id uuid.UUID) {
				if entry != nil {
					entry.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		activityStore: repo,
		db:            cfg.DB,
		clock:         clock,
		idGen:         idGen,
	}, nil
}

var (
	_ types.ActivityRepository = (*Repository)(nil)
	_ types.ActivityAggregator = (*Repository)(nil)
)

// CreateActivity inserts a single record under the ambient tenant. The type
// is validated here again even though the pipeline already checked it; the
// activities table carries a matching CHECK constraint so writes that bypass
// this code path are rejected by the store itself.
func (r *Repository) CreateActivity(ctx context.Context, record types.ActivityRecord) (*types.ActivityRecord, error) {
	if !record.ActivityType.Valid() {
		return nil, goerrors.Wrap(types.ErrInvalidActivityType, goerrors.CategoryValidation, "activity: type outside the closed set").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"activity_type": record.ActivityType.String()})
	}
	tenant, err := tenantctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if record.CompanyID == uuid.Nil {
		record.CompanyID = tenant
	}
	if record.CompanyID != tenant {
		return nil, goerrors.Wrap(types.ErrTenantMismatch, goerrors.CategoryAuthz, "activity: record company does not match ambient tenant").
			WithCode(goerrors.CodeForbidden)
	}

	entry := fromRecord(record)
	if entry.ID == uuid.Nil {
		entry.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	created, err := r.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	out := toRecord(created)
	return &out, nil
}

// UpdateActivityMetadata replaces the metadata payload of an existing row.
// occurred_at is deliberately left untouched: it is set once on create and
// never overwritten by later updates.
func (r *Repository) UpdateActivityMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) (*types.ActivityRecord, error) {
	tenant, err := tenantctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cloneMap(metadata))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "activity: metadata not serializable").
			WithCode(goerrors.CodeBadRequest)
	}
	res, err := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("metadata = ?", string(payload)).
		Set("updated_at = ?", r.clock.Now()).
		Where("id = ?", id).
		Where("company_id = ?", tenant).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, goerrors.New("activity: record not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"id": id.String()})
	}
	return r.GetActivity(ctx, id)
}

// GetActivity fetches one record under the ambient tenant scope.
func (r *Repository) GetActivity(ctx context.Context, id uuid.UUID) (*types.ActivityRecord, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	entry := &Record{}
	if err := q.Model(entry).Where("a.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("activity: record not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	out := toRecord(entry)
	return &out, nil
}

// CountCreatedSince counts rows created after the cutoff for the ambient
// tenant. The ingestion pipeline reads this for its load decision.
func (r *Repository) CountCreatedSince(ctx context.Context, cutoff time.Time) (int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return 0, err
	}
	return q.Model((*Record)(nil)).Where("a.created_at > ?", cutoff).Count(ctx)
}

// FilterByParams lists records most-recent-first with the optional filters
// applied. Empty params return the full tenant feed.
func (r *Repository) FilterByParams(ctx context.Context, params types.FilterParams) ([]types.ActivityRecord, error) {
	var entries []*Record
	q, err := r.applyTenant(ctx, r.db.NewSelect().Model(&entries))
	if err != nil {
		return nil, err
	}
	if params.UserID != uuid.Nil {
		q = q.Where("a.user_id = ?", params.UserID)
	}
	if t, ok := types.ParseActivityType(params.ActivityType); ok && params.ActivityType != "" {
		q = q.Where("a.activity_type = ?", t.String())
	}
	start, end, err := DateRange(params.StartDate, params.EndDate, r.clock)
	if err != nil {
		return nil, err
	}
	q = q.Where("a.occurred_at >= ?", start).Where("a.occurred_at < ?", end)
	q = q.OrderExpr("a.occurred_at DESC")
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	records := make([]types.ActivityRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, toRecord(entry))
	}
	return records, nil
}

// CountBetween counts records whose occurred_at falls in [start, end).
func (r *Repository) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return 0, err
	}
	return q.Model((*Record)(nil)).
		Where("a.occurred_at >= ?", start).
		Where("a.occurred_at < ?", end).
		Count(ctx)
}

// CountByType groups records in the window by activity type.
func (r *Repository) CountByType(ctx context.Context, start, end time.Time) (map[string]int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		ActivityType string `bun:"activity_type"`
		Total        int    `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr("a.activity_type").
		ColumnExpr("COUNT(*) AS total").
		Where("a.occurred_at >= ?", start).
		Where("a.occurred_at < ?", end).
		GroupExpr("a.activity_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, rec := range rows {
		out[rec.ActivityType] = rec.Total
	}
	return out, nil
}

// CountByUserEmail groups records in the window by the user's email. The join
// intentionally ignores the soft-delete view so discarded users still appear
// against their history.
func (r *Repository) CountByUserEmail(ctx context.Context, start, end time.Time) (map[string]int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Email string `bun:"email"`
		Total int    `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr("u.email AS email").
		ColumnExpr("COUNT(*) AS total").
		Join("JOIN users AS u ON u.id = a.user_id").
		Where("a.occurred_at >= ?", start).
		Where("a.occurred_at < ?", end).
		GroupExpr("u.email").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, rec := range rows {
		out[rec.Email] = rec.Total
	}
	return out, nil
}

// CountByHour groups records in the window by hour-of-day (0-23).
func (r *Repository) CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Hour  int `bun:"hour"`
		Total int `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr(r.hourExpr()+" AS hour").
		ColumnExpr("COUNT(*) AS total").
		Where("a.occurred_at >= ?", start).
		Where("a.occurred_at < ?", end).
		GroupExpr(r.hourExpr()).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, rec := range rows {
		out[rec.Hour] = rec.Total
	}
	return out, nil
}

// TotalCount counts every record for the ambient tenant.
func (r *Repository) TotalCount(ctx context.Context) (int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return 0, err
	}
	return q.Model((*Record)(nil)).Count(ctx)
}

// DistinctUsersSince counts distinct users active after the cutoff.
func (r *Repository) DistinctUsersSince(ctx context.Context, cutoff time.Time) (int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return 0, err
	}
	var total int
	err = q.Model((*Record)(nil)).
		ColumnExpr("COUNT(DISTINCT a.user_id)").
		Where("a.occurred_at >= ?", cutoff).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// TopUsers returns the most active users by total activity count. The
// ordering and limit run in the store; ties keep whatever order the store
// returns since no tie-break is defined.
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]types.UserActivityCount, error) {
	if limit <= 0 {
		limit = 5
	}
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		UserID uuid.UUID `bun:"user_id,type:uuid"`
		Name   string    `bun:"name"`
		Total  int       `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr("a.user_id AS user_id").
		ColumnExpr("u.name AS name").
		ColumnExpr("COUNT(*) AS total").
		Join("JOIN users AS u ON u.id = a.user_id").
		GroupExpr("a.user_id, u.name").
		OrderExpr("total DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]types.UserActivityCount, 0, len(rows))
	for _, rec := range rows {
		out = append(out, types.UserActivityCount{
			UserID: rec.UserID,
			Name:   rec.Name,
			Count:  rec.Total,
		})
	}
	return out, nil
}

// DailyTypeTrends buckets records after the cutoff by calendar day and
// activity type.
func (r *Repository) DailyTypeTrends(ctx context.Context, cutoff time.Time) (map[string]map[string]int, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Day          string `bun:"day"`
		ActivityType string `bun:"activity_type"`
		Total        int    `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr(r.dayExpr()+" AS day").
		ColumnExpr("a.activity_type").
		ColumnExpr("COUNT(*) AS total").
		Where("a.occurred_at >= ?", cutoff).
		GroupExpr(r.dayExpr() + ", a.activity_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int)
	for _, rec := range rows {
		bucket := out[rec.Day]
		if bucket == nil {
			bucket = make(map[string]int)
			out[rec.Day] = bucket
		}
		bucket[rec.ActivityType] = rec.Total
	}
	return out, nil
}

// HourHistogram returns per-hour counts after the cutoff, sorted by hour
// ascending.
func (r *Repository) HourHistogram(ctx context.Context, cutoff time.Time) ([]types.HourCount, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	type row struct {
		Hour  int `bun:"hour"`
		Total int `bun:"total"`
	}
	var rows []row
	err = q.Model((*Record)(nil)).
		ColumnExpr(r.hourExpr()+" AS hour").
		ColumnExpr("COUNT(*) AS total").
		Where("a.occurred_at >= ?", cutoff).
		GroupExpr(r.hourExpr()).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]types.HourCount, 0, len(rows))
	for _, rec := range rows {
		out = append(out, types.HourCount{Hour: rec.Hour, Count: rec.Total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

// RecentActivities returns the newest records first.
func (r *Repository) RecentActivities(ctx context.Context, limit int) ([]types.ActivityRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []*Record
	q := r.db.NewSelect().Model(&entries)
	q, err := r.applyTenant(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := q.OrderExpr("a.occurred_at DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}
	records := make([]types.ActivityRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, toRecord(entry))
	}
	return records, nil
}

// scoped starts a select query carrying the tenant predicate, or the
// tenant-not-set failure when the context is neither scoped nor explicitly
// cross-tenant.
func (r *Repository) scoped(ctx context.Context) (*bun.SelectQuery, error) {
	return r.applyTenant(ctx, r.db.NewSelect())
}

func (r *Repository) applyTenant(ctx context.Context, q *bun.SelectQuery) (*bun.SelectQuery, error) {
	if tenantctx.Unscoped(ctx) {
		return q, nil
	}
	tenant, err := tenantctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	return q.Where("a.company_id = ?", tenant), nil
}

func (r *Repository) hourExpr() string {
	if r.db.Dialect().Name() == dialect.PG {
		return "CAST(EXTRACT(HOUR FROM a.occurred_at) AS INT)"
	}
	return "CAST(strftime('%H', a.occurred_at) AS INTEGER)"
}

func (r *Repository) dayExpr() string {
	if r.db.Dialect().Name() == dialect.PG {
		return "TO_CHAR(a.occurred_at, 'YYYY-MM-DD')"
	}
	return "strftime('%Y-%m-%d', a.occurred_at)"
}
