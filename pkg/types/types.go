package types

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies one of the fixed set of trackable user actions.
type ActivityType string

const (
	ActivityLogin              ActivityType = "login"
	ActivityLogout             ActivityType = "logout"
	ActivityGiveRecognition    ActivityType = "give_recognition"
	ActivityReceiveRecognition ActivityType = "receive_recognition"
	ActivityProfileUpdate      ActivityType = "profile_update"
	ActivityAdminAction        ActivityType = "admin_action"
)

var activityTypes = []ActivityType{
	ActivityLogin,
	ActivityLogout,
	ActivityGiveRecognition,
	ActivityReceiveRecognition,
	ActivityProfileUpdate,
	ActivityAdminAction,
}

// ActivityTypes returns the closed set of valid activity types.
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, len(activityTypes))
	copy(out, activityTypes)
	return out
}

// ParseActivityType normalizes raw input and reports whether it names a
// member of the closed set. Callers may pass either the canonical string or
// any case variant.
func ParseActivityType(raw string) (ActivityType, bool) {
	normalized := ActivityType(strings.ToLower(strings.TrimSpace(raw)))
	return normalized, normalized.Valid()
}

// Valid reports membership in the closed activity-type set.
func (t ActivityType) Valid() bool {
	for _, known := range activityTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ActivityType) String() string { return string(t) }

// Role enumerates the user roles recognized by the system.
type Role string

const (
	RoleUser         Role = "user"
	RoleCompanyAdmin Role = "company_admin"
	RoleAdmin        Role = "admin"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCompanyAdmin, RoleAdmin:
		return true
	}
	return false
}

// Company is the tenant: the unit of data isolation.
type Company struct {
	ID              uuid.UUID
	Name            string
	TrackingEnabled bool
	TrackingConfig  map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// User belongs to exactly one company for its lifetime. A non-nil DiscardedAt
// marks the user as soft-deleted; activity history is never removed with it.
type User struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Email       string
	Name        string
	Role        Role
	DiscardedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Discarded reports whether the user has been soft-deleted.
func (u *User) Discarded() bool {
	return u != nil && u.DiscardedAt != nil && !u.DiscardedAt.IsZero()
}

// Admin reports whether the user holds the global admin role.
func (u *User) Admin() bool { return u != nil && u.Role == RoleAdmin }

// CompanyAdmin reports whether the user administers their own company.
func (u *User) CompanyAdmin() bool { return u != nil && u.Role == RoleCompanyAdmin }

// CanViewActivities reports whether the user may read activity feeds.
func (u *User) CanViewActivities() bool { return u.Admin() || u.CompanyAdmin() }

// ActivityRecord is the persisted shape of a single tracked action. It is the
// wire/storage contract shared by the sync and deferred write paths.
type ActivityRecord struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	ActivityType ActivityType
	Metadata     map[string]any
	OccurredAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Track result reasons. Expected rejections and both success outcomes carry
// one of these strings; unexpected failures carry the error message instead.
// ReasonUserNotFound is bulk-only: it marks entries whose user id resolved to
// no user, while ReasonUserRequired marks a missing id.
const (
	ReasonUserRequired     = "user_required"
	ReasonUserNotFound     = "user not found"
	ReasonInvalidType      = "invalid_type"
	ReasonTrackingDisabled = "tracking_disabled"
	ReasonQueued           = "queued"
	ReasonTracked          = "tracked"
)

// TrackResult is the envelope returned by the ingestion pipeline. Expected
// business rejections set Success false without raising an error.
type TrackResult struct {
	Success bool
	Reason  string
	Record  *ActivityRecord
}

// TrackPayload is a validated, enriched event waiting for deferred
// persistence. It carries everything the consumer needs to re-establish
// tenant context and produce a record identical to the sync path.
type TrackPayload struct {
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	ActivityType ActivityType
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BulkTrackEntry is one event in a cross-tenant batch. UserID is resolved
// per entry, so entries may span companies.
type BulkTrackEntry struct {
	UserID       uuid.UUID
	ActivityType string
	Metadata     map[string]any
}

// BulkTrackReport tallies a batch. Total always equals Succeeded + Failed and
// Results holds one envelope per entry in input order.
type BulkTrackReport struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []TrackResult
}

// UserActivityCount pairs a user with their activity total for rankings.
type UserActivityCount struct {
	UserID uuid.UUID
	Name   string
	Count  int
}

// HourCount is one bucket of an hour-of-day histogram. Hour is 0-23.
type HourCount struct {
	Hour  int
	Count int
}

// FilterParams narrows activity listings. Zero values mean "no filter"; date
// strings accept date-only (2006-01-02) or RFC 3339 input.
type FilterParams struct {
	UserID       uuid.UUID
	ActivityType string
	StartDate    string
	EndDate      string
	Limit        int
	Offset       int
}

// SummaryPeriod selects the trailing window for summary queries.
type SummaryPeriod string

const (
	PeriodHour  SummaryPeriod = "hour"
	PeriodDay   SummaryPeriod = "day"
	PeriodWeek  SummaryPeriod = "week"
	PeriodMonth SummaryPeriod = "month"
)

// SummaryGroupBy selects the grouping dimension for summary queries.
type SummaryGroupBy string

const (
	GroupByActivityType SummaryGroupBy = "activity_type"
	GroupByUser         SummaryGroupBy = "user"
	GroupByHour         SummaryGroupBy = "hour"
)

// CompanyRepository exposes the tenant lookups and lifecycle operations the
// pipeline and policy layers need.
type CompanyRepository interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*Company, error)
	GetCompanyByName(ctx context.Context, name string) (*Company, error)
	CreateCompany(ctx context.Context, company *Company) (*Company, error)
	UpdateCompany(ctx context.Context, company *Company) (*Company, error)
	// DeleteCompany removes a company with no dependent users or activities.
	// Companies with dependents are protected; the call fails without
	// cascading.
	DeleteCompany(ctx context.Context, id uuid.UUID) error
}

// UserLookup tweaks user read behavior.
type UserLookup struct {
	// IncludeDiscarded widens the default view to soft-deleted users.
	IncludeDiscarded bool
}

// UserRepository exposes user lookups honoring the soft-delete default view.
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID, lookup UserLookup) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	// CountUsers counts kept users for the ambient tenant.
	CountUsers(ctx context.Context) (int, error)
	// DiscardUser soft-deletes: the row and its activity history survive.
	DiscardUser(ctx context.Context, id uuid.UUID) error
	// DeleteUser hard-deletes and fails while activities reference the user.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserCounter is the slice of the user contract the stats read model needs.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// ActivityRepository is the storage contract for the ingestion pipeline and
// the aggregation engine. Every method is scoped to the ambient tenant
// carried by the context and fails fast when none is bound.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, record ActivityRecord) (*ActivityRecord, error)
	// UpdateActivityMetadata replaces metadata without touching occurred_at.
	UpdateActivityMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) (*ActivityRecord, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*ActivityRecord, error)
	// CountCreatedSince counts rows created after the cutoff; the load
	// decision in the pipeline reads this.
	CountCreatedSince(ctx context.Context, cutoff time.Time) (int, error)
	FilterByParams(ctx context.Context, params FilterParams) ([]ActivityRecord, error)
}

// ActivityAggregator answers the grouped and windowed queries behind the
// summary/stats read models.
type ActivityAggregator interface {
	CountBetween(ctx context.Context, start, end time.Time) (int, error)
	CountByType(ctx context.Context, start, end time.Time) (map[string]int, error)
	CountByUserEmail(ctx context.Context, start, end time.Time) (map[string]int, error)
	CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error)
	TotalCount(ctx context.Context) (int, error)
	DistinctUsersSince(ctx context.Context, cutoff time.Time) (int, error)
	TopUsers(ctx context.Context, limit int) ([]UserActivityCount, error)
	DailyTypeTrends(ctx context.Context, cutoff time.Time) (map[string]map[string]int, error)
	HourHistogram(ctx context.Context, cutoff time.Time) ([]HourCount, error)
	RecentActivities(ctx context.Context, limit int) ([]ActivityRecord, error)
}

// DispatchQueue accepts payloads for deferred persistence.
type DispatchQueue interface {
	Enqueue(ctx context.Context, payload TrackPayload) error
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterTrack func(context.Context, ActivityRecord)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the pipeline.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrNoTenant indicates a data access ran with no ambient tenant bound.
	ErrNoTenant = errors.New("go-activity: no tenant set")
	// ErrCompanyNotFound indicates the company lookup matched no row.
	ErrCompanyNotFound = errors.New("go-activity: company not found")
	// ErrUserNotFound indicates the user lookup matched no row.
	ErrUserNotFound = errors.New("go-activity: user not found")
	// ErrCompanyHasDependents blocks deleting a company with users or activities.
	ErrCompanyHasDependents = errors.New("go-activity: company has dependent records")
	// ErrUserHasActivities blocks hard-deleting a user with activity history.
	ErrUserHasActivities = errors.New("go-activity: user has activity records")
	// ErrTenantMismatch indicates an activity's company does not match its user's.
	ErrTenantMismatch = errors.New("go-activity: activity company must match user company")
	// ErrInvalidActivityType indicates a type outside the closed set.
	ErrInvalidActivityType = errors.New("go-activity: invalid activity type")
	// ErrMissingActivityRepository occurs when no activity repository was supplied.
	ErrMissingActivityRepository = errors.New("go-activity: missing activity repository")
	// ErrMissingCompanyRepository occurs when no company repository was supplied.
	ErrMissingCompanyRepository = errors.New("go-activity: missing company repository")
	// ErrMissingUserRepository occurs when no user repository was supplied.
	ErrMissingUserRepository = errors.New("go-activity: missing user repository")
	// ErrMissingAggregator occurs when summary/stats queries lack a data source.
	ErrMissingAggregator = errors.New("go-activity: missing activity aggregator")
	// ErrServiceNotReady indicates the service has not been fully configured.
	ErrServiceNotReady = errors.New("go-activity: service not ready")
)
