package activity

import (
	"strings"
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	goerrors "github.com/goliatone/go-errors"
)

const dateLayout = "2006-01-02"

// openRangeYears bounds the effective date range when either end is omitted.
const openRangeYears = 100

// DateRange resolves the start/end filter inputs into a half-open interval
// [start, end). Date-only inputs cover the full calendar day: start is the
// beginning of that day and end is the beginning of the day after. Omitted
// bounds default to 100 years back/forward, so a fully open range never
// errors.
func DateRange(startDate, endDate string, clock types.Clock) (time.Time, time.Time, error) {
	now := nowFrom(clock)

	start := now.AddDate(-openRangeYears, 0, 0)
	if raw := strings.TrimSpace(startDate); raw != "" {
		day, err := parseDay(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = day
	}

	end := now.AddDate(openRangeYears, 0, 0)
	if raw := strings.TrimSpace(endDate); raw != "" {
		day, err := parseDay(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = day.AddDate(0, 0, 1)
	}

	return start, end, nil
}

// parseDay accepts a date-only string or an RFC 3339 timestamp and returns
// the beginning of that calendar day.
func parseDay(raw string) (time.Time, error) {
	if day, err := time.Parse(dateLayout, raw); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, goerrors.Wrap(err, goerrors.CategoryValidation, "go-activity: invalid date filter").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"value": raw})
	}
	year, month, day := ts.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

func nowFrom(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}
