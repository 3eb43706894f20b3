package activity

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	companyID := seedCompany(t, db, "acme", true)
	userID := seedUser(t, db, companyID, "ada@acme.test", "Ada")

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, companyID)
	created, err := store.CreateActivity(scoped, types.ActivityRecord{
		UserID:       userID,
		ActivityType: types.ActivityLogin,
		Metadata:     map[string]any{"browser": "firefox"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, companyID, created.CompanyID)
	require.False(t, created.OccurredAt.IsZero())

	got, err := store.GetActivity(scoped, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "firefox", got.Metadata["browser"])
}

func TestRepository_OccurredAtSetOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	companyID := seedCompany(t, db, "acme", true)
	userID := seedUser(t, db, companyID, "ada@acme.test", "Ada")

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, companyID)
	occurred := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	created, err := store.CreateActivity(scoped, types.ActivityRecord{
		UserID:       userID,
		ActivityType: types.ActivityProfileUpdate,
		Metadata:     map[string]any{"field": "name"},
		OccurredAt:   occurred,
	})
	require.NoError(t, err)
	require.True(t, created.OccurredAt.Equal(occurred))

	updated, err := store.UpdateActivityMetadata(scoped, created.ID, map[string]any{"field": "email"})
	require.NoError(t, err)
	require.Equal(t, "email", updated.Metadata["field"])
	require.True(t, updated.OccurredAt.Equal(occurred))
}

func TestRepository_RequiresTenant(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	_, err = store.CreateActivity(ctx, types.ActivityRecord{
		UserID:       uuid.New(),
		ActivityType: types.ActivityLogin,
	})
	require.ErrorIs(t, err, types.ErrNoTenant)

	_, err = store.TotalCount(ctx)
	require.ErrorIs(t, err, types.ErrNoTenant)
}

func TestRepository_TenantMismatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	companyID := seedCompany(t, db, "acme", true)
	userID := seedUser(t, db, companyID, "ada@acme.test", "Ada")

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, uuid.New())
	_, err = store.CreateActivity(scoped, types.ActivityRecord{
		UserID:       userID,
		CompanyID:    companyID,
		ActivityType: types.ActivityLogin,
	})
	require.ErrorIs(t, err, types.ErrTenantMismatch)
}

func TestRepository_InvalidType(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, uuid.New())
	_, err = store.CreateActivity(scoped, types.ActivityRecord{
		UserID:       uuid.New(),
		ActivityType: types.ActivityType("page_view"),
	})
	require.ErrorIs(t, err, types.ErrInvalidActivityType)
}

func TestRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	acmeID := seedCompany(t, db, "acme", true)
	globexID := seedCompany(t, db, "globex", true)
	adaID := seedUser(t, db, acmeID, "ada@acme.test", "Ada")
	bobID := seedUser(t, db, globexID, "bob@globex.test", "Bob")

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	acmeCtx := tenantctx.WithTenant(ctx, acmeID)
	globexCtx := tenantctx.WithTenant(ctx, globexID)

	created, err := store.CreateActivity(acmeCtx, types.ActivityRecord{
		UserID:       adaID,
		ActivityType: types.ActivityLogin,
	})
	require.NoError(t, err)
	_, err = store.CreateActivity(globexCtx, types.ActivityRecord{
		UserID:       bobID,
		ActivityType: types.ActivityLogout,
	})
	require.NoError(t, err)

	acmeFeed, err := store.FilterByParams(acmeCtx, types.FilterParams{})
	require.NoError(t, err)
	require.Len(t, acmeFeed, 1)
	require.Equal(t, adaID, acmeFeed[0].UserID)

	// the other tenant's record is invisible, not merely filtered client-side
	_, err = store.GetActivity(globexCtx, created.ID)
	require.Error(t, err)

	// explicit cross-tenant context still sees both rows
	total, err := store.TotalCount(tenantctx.WithoutTenant(ctx))
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestRepository_FilterByParams(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	companyID := seedCompany(t, db, "acme", true)
	adaID := seedUser(t, db, companyID, "ada@acme.test", "Ada")
	bobID := seedUser(t, db, companyID, "bob@acme.test", "Bob")

	clock := fixedClock{at: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	store, err := NewRepository(RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, companyID)
	seed := []struct {
		user uuid.UUID
		kind types.ActivityType
		at   time.Time
	}{
		{adaID, types.ActivityLogin, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)},
		{adaID, types.ActivityLogout, time.Date(2025, 6, 10, 17, 0, 0, 0, time.UTC)},
		{bobID, types.ActivityLogin, time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)},
		{bobID, types.ActivityGiveRecognition, time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)},
	}
	for _, item := range seed {
		_, err := store.CreateActivity(scoped, types.ActivityRecord{
			UserID:       item.user,
			ActivityType: item.kind,
			OccurredAt:   item.at,
		})
		require.NoError(t, err)
	}

	// empty params: full feed, newest first
	feed, err := store.FilterByParams(scoped, types.FilterParams{})
	require.NoError(t, err)
	require.Len(t, feed, 4)
	require.Equal(t, types.ActivityGiveRecognition, feed[0].ActivityType)

	byUser, err := store.FilterByParams(scoped, types.FilterParams{UserID: adaID})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byType, err := store.FilterByParams(scoped, types.FilterParams{ActivityType: "login"})
	require.NoError(t, err)
	require.Len(t, byType, 2)

	byDate, err := store.FilterByParams(scoped, types.FilterParams{StartDate: "2025-06-11", EndDate: "2025-06-12"})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	require.Equal(t, bobID, byDate[0].UserID)

	limited, err := store.FilterByParams(scoped, types.FilterParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, types.ActivityLogin, limited[0].ActivityType)
}

func TestRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	companyID := seedCompany(t, db, "acme", true)
	adaID := seedUser(t, db, companyID, "ada@acme.test", "Ada")
	bobID := seedUser(t, db, companyID, "bob@acme.test", "Bob")

	clock := fixedClock{at: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	store, err := NewRepository(RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)

	scoped := tenantctx.WithTenant(ctx, companyID)
	seed := []struct {
		user uuid.UUID
		kind types.ActivityType
		at   time.Time
	}{
		{adaID, types.ActivityLogin, time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)},
		{adaID, types.ActivityLogin, time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)},
		{adaID, types.ActivityLogout, time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC)},
		{bobID, types.ActivityLogin, time.Date(2025, 6, 13, 9, 15, 0, 0, time.UTC)},
	}
	for _, item := range seed {
		_, err := store.CreateActivity(scoped, types.ActivityRecord{
			UserID:       item.user,
			ActivityType: item.kind,
			OccurredAt:   item.at,
		})
		require.NoError(t, err)
	}

	start := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	total, err := store.CountBetween(scoped, start, end)
	require.NoError(t, err)
	require.Equal(t, 4, total)

	byType, err := store.CountByType(scoped, start, end)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"login": 3, "logout": 1}, byType)

	byEmail, err := store.CountByUserEmail(scoped, start, end)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"ada@acme.test": 3, "bob@acme.test": 1}, byEmail)

	byHour, err := store.CountByHour(scoped, start, end)
	require.NoError(t, err)
	require.Equal(t, 3, byHour[9])
	require.Equal(t, 1, byHour[17])

	active, err := store.DistinctUsersSince(scoped, start)
	require.NoError(t, err)
	require.Equal(t, 2, active)

	top, err := store.TopUsers(scoped, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, adaID, top[0].UserID)
	require.Equal(t, 3, top[0].Count)
	require.Equal(t, "Ada", top[0].Name)

	trends, err := store.DailyTypeTrends(scoped, start)
	require.NoError(t, err)
	require.Equal(t, 2, trends["2025-06-14"]["login"])
	require.Equal(t, 1, trends["2025-06-13"]["login"])

	hours, err := store.HourHistogram(scoped, start)
	require.NoError(t, err)
	require.Len(t, hours, 2)
	require.Equal(t, 9, hours[0].Hour)
	require.Equal(t, 17, hours[1].Hour)

	recent, err := store.RecentActivities(scoped, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, types.ActivityLogout, recent[0].ActivityType)
}

func TestActivityTypeCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	applyDDL(t, db)
	companyID := seedCompany(t, db, "acme", true)
	userID := seedUser(t, db, companyID, "ada@acme.test", "Ada")

	// the table constraint rejects out-of-set types even when the
	// application-level validation is bypassed with a raw write
	_, err := db.Exec(
		"INSERT INTO activities (id, user_id, company_id, activity_type, metadata, occurred_at) VALUES (?, ?, ?, 'page_view', '{}', CURRENT_TIMESTAMP)",
		uuid.New().String(), userID.String(), companyID.String(),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "valid_activity_type")

	_, err = db.Exec(
		"INSERT INTO activities (id, user_id, company_id, activity_type, metadata, occurred_at) VALUES (?, ?, ?, 'login', '{}', CURRENT_TIMESTAMP)",
		uuid.New().String(), userID.String(), companyID.String(),
	)
	require.NoError(t, err)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	t.Helper()
	files := []string{
		"00001_companies.up.sql",
		"00002_users.up.sql",
		"00003_activities.up.sql",
	}
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join("..", "data", "sql", "migrations", "sqlite", name))
		require.NoError(t, err)
		for _, stmt := range splitStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}

func seedCompany(t *testing.T, db *bun.DB, name string, trackingEnabled bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		"INSERT INTO companies (id, name, tracking_enabled, tracking_config) VALUES (?, ?, ?, '{}')",
		id.String(), name, trackingEnabled,
	)
	require.NoError(t, err)
	return id
}

func seedUser(t *testing.T, db *bun.DB, companyID uuid.UUID, email, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		"INSERT INTO users (id, company_id, email, name, role) VALUES (?, ?, ?, ?, 'user')",
		id.String(), companyID.String(), email, name,
	)
	require.NoError(t, err)
	return id
}
