package query

import (
	"context"
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	gocommand "github.com/goliatone/go-command"
)

const (
	topUsersLimit   = 5
	trendWindowDays = 7
	recentFeedLimit = 10
	// openRangeYears mirrors the open date-range default used by the filter
	// helpers: wide enough to cover every record without special-casing SQL.
	openRangeYears = 100
)

// StatsInput parameterizes the dashboard snapshot. It is currently empty;
// tenant scope comes from the context.
type StatsInput struct{}

// Overview is the headline counter block of the dashboard snapshot.
type Overview struct {
	TotalActivities     int
	ActivitiesToday     int
	ActiveUsersToday    int
	ActivitiesThisWeek  int
	ActiveUsersThisWeek int
	TotalUsers          int
}

// Stats is the dashboard read model: headline counters, the all-time
// per-type breakdown, the most active users, a 7-day date-by-type trend grid,
// the hour-of-day histogram (hour ascending), and the most recent entries.
type Stats struct {
	Overview          Overview
	ActivityBreakdown map[string]int
	TopUsers          []types.UserActivityCount
	Trends            map[string]map[string]int
	PeakTimes         []types.HourCount
	Recent            []types.ActivityRecord
	GeneratedAt       time.Time
}

// StatsQuery assembles the dashboard snapshot from the aggregation contract
// plus the user head-count seam.
type StatsQuery struct {
	aggregator types.ActivityAggregator
	users      types.UserCounter
	clock      types.Clock
}

// NewStatsQuery constructs the stats helper.
func NewStatsQuery(aggregator types.ActivityAggregator, users types.UserCounter, clock types.Clock) *StatsQuery {
	return &StatsQuery{
		aggregator: aggregator,
		users:      users,
		clock:      safeClock(clock),
	}
}

var _ gocommand.Querier[StatsInput, Stats] = (*StatsQuery)(nil)

// Query computes the full snapshot for the ambient tenant.
func (q *StatsQuery) Query(ctx context.Context, _ StatsInput) (Stats, error) {
	if q.aggregator == nil {
		return Stats{}, types.ErrMissingAggregator
	}
	if q.users == nil {
		return Stats{}, types.ErrMissingUserRepository
	}

	now := q.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -trendWindowDays)

	total, err := q.aggregator.TotalCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	today, err := q.aggregator.CountBetween(ctx, dayStart, now)
	if err != nil {
		return Stats{}, err
	}
	activeToday, err := q.aggregator.DistinctUsersSince(ctx, dayStart)
	if err != nil {
		return Stats{}, err
	}
	thisWeek, err := q.aggregator.CountBetween(ctx, weekAgo, now)
	if err != nil {
		return Stats{}, err
	}
	activeThisWeek, err := q.aggregator.DistinctUsersSince(ctx, weekAgo)
	if err != nil {
		return Stats{}, err
	}
	totalUsers, err := q.users.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	breakdown, err := q.aggregator.CountByType(ctx,
		now.AddDate(-openRangeYears, 0, 0), now.AddDate(openRangeYears, 0, 0))
	if err != nil {
		return Stats{}, err
	}
	topUsers, err := q.aggregator.TopUsers(ctx, topUsersLimit)
	if err != nil {
		return Stats{}, err
	}
	trends, err := q.aggregator.DailyTypeTrends(ctx, weekAgo)
	if err != nil {
		return Stats{}, err
	}
	hours, err := q.aggregator.HourHistogram(ctx, weekAgo)
	if err != nil {
		return Stats{}, err
	}
	recent, err := q.aggregator.RecentActivities(ctx, recentFeedLimit)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Overview: Overview{
			TotalActivities:     total,
			ActivitiesToday:     today,
			ActiveUsersToday:    activeToday,
			ActivitiesThisWeek:  thisWeek,
			ActiveUsersThisWeek: activeThisWeek,
			TotalUsers:          totalUsers,
		},
		ActivityBreakdown: breakdown,
		TopUsers:          topUsers,
		Trends:            trends,
		PeakTimes:         hours,
		Recent:            recent,
		GeneratedAt:       now,
	}, nil
}
