package query

import "github.com/goliatone/go-activity/pkg/types"

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}
