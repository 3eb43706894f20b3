package command

import (
	"context"
	"time"

	"github.com/goliatone/go-activity/pkg/types"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeHooks(hooks types.Hooks) types.Hooks {
	return hooks
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

func emitTrackHook(ctx context.Context, hooks types.Hooks, record types.ActivityRecord) {
	if hooks.AfterTrack == nil {
		return
	}
	hooks.AfterTrack(ctx, record)
}
