package query

import (
	"context"

	"github.com/goliatone/go-activity/pkg/types"
	gocommand "github.com/goliatone/go-command"
)

// ActivityFeedQuery lists activities for the ambient tenant with the standard
// filter parameters, newest first.
type ActivityFeedQuery struct {
	repo types.ActivityRepository
}

// NewActivityFeedQuery constructs the feed helper.
func NewActivityFeedQuery(repo types.ActivityRepository) *ActivityFeedQuery {
	return &ActivityFeedQuery{repo: repo}
}

var _ gocommand.Querier[types.FilterParams, []types.ActivityRecord] = (*ActivityFeedQuery)(nil)

// Query fetches the filtered feed via the injected repository.
func (q *ActivityFeedQuery) Query(ctx context.Context, params types.FilterParams) ([]types.ActivityRecord, error) {
	if q.repo == nil {
		return nil, types.ErrMissingActivityRepository
	}
	return q.repo.FilterByParams(ctx, params)
}
