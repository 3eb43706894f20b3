package query

import (
	"context"
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	gocommand "github.com/goliatone/go-command"
)

// SummaryInput selects the trailing window and grouping for a summary.
type SummaryInput struct {
	Period  types.SummaryPeriod
	GroupBy types.SummaryGroupBy
}

// Summary is the aggregation read model for one trailing window. Exactly one
// of Total/ByType/ByUser/ByHour carries the grouped data, matching GroupBy.
type Summary struct {
	Period      types.SummaryPeriod
	GroupBy     types.SummaryGroupBy
	Start       time.Time
	End         time.Time
	Total       int
	ByType      map[string]int
	ByUser      map[string]int
	ByHour      map[int]int
	GeneratedAt time.Time
}

// SummaryQuery aggregates activity over a trailing window, grouped by the
// requested dimension. All reads run against the ambient tenant.
type SummaryQuery struct {
	aggregator types.ActivityAggregator
	clock      types.Clock
}

// NewSummaryQuery constructs the summary helper.
func NewSummaryQuery(aggregator types.ActivityAggregator, clock types.Clock) *SummaryQuery {
	return &SummaryQuery{
		aggregator: aggregator,
		clock:      safeClock(clock),
	}
}

var _ gocommand.Querier[SummaryInput, Summary] = (*SummaryQuery)(nil)

// Query computes the summary. Unrecognized periods fall back to day; an empty
// or unrecognized group-by yields the window total.
func (q *SummaryQuery) Query(ctx context.Context, input SummaryInput) (Summary, error) {
	if q.aggregator == nil {
		return Summary{}, types.ErrMissingAggregator
	}

	now := q.clock.Now()
	start := windowStart(now, input.Period)
	out := Summary{
		Period:      normalizePeriod(input.Period),
		GroupBy:     input.GroupBy,
		Start:       start,
		End:         now,
		GeneratedAt: now,
	}

	var err error
	switch input.GroupBy {
	case types.GroupByActivityType:
		out.ByType, err = q.aggregator.CountByType(ctx, start, now)
	case types.GroupByUser:
		out.ByUser, err = q.aggregator.CountByUserEmail(ctx, start, now)
	case types.GroupByHour:
		out.ByHour, err = q.aggregator.CountByHour(ctx, start, now)
	default:
		out.GroupBy = ""
		out.Total, err = q.aggregator.CountBetween(ctx, start, now)
	}
	if err != nil {
		return Summary{}, err
	}
	return out, nil
}

func normalizePeriod(period types.SummaryPeriod) types.SummaryPeriod {
	switch period {
	case types.PeriodHour, types.PeriodDay, types.PeriodWeek, types.PeriodMonth:
		return period
	}
	return types.PeriodDay
}

func windowStart(now time.Time, period types.SummaryPeriod) time.Time {
	switch normalizePeriod(period) {
	case types.PeriodHour:
		return now.Add(-time.Hour)
	case types.PeriodWeek:
		return now.AddDate(0, 0, -7)
	case types.PeriodMonth:
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(0, 0, -1)
	}
}
