package command

import (
	"context"

	"github.com/goliatone/go-activity/pkg/types"
	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
)

// BulkTrackInput carries a batch of events. Entries resolve their user
// individually, so one batch may span companies.
type BulkTrackInput struct {
	Entries []types.BulkTrackEntry
	Request types.RequestInfo
	Result  *types.BulkTrackReport
}

// Type implements gocommand.Message.
func (BulkTrackInput) Type() string {
	return "command.activity.bulk_track"
}

// Validate implements gocommand.Message.
func (input BulkTrackInput) Validate() error {
	if len(input.Entries) == 0 {
		return ErrEntriesRequired
	}
	return nil
}

// BulkTrackCommandConfig holds dependencies for batch ingestion.
type BulkTrackCommandConfig struct {
	Users types.UserRepository
	Track *TrackCommand
}

// BulkTrackCommand resolves each entry's user and runs it through the single
// track pipeline. One bad entry never aborts the batch.
type BulkTrackCommand struct {
	users types.UserRepository
	track *TrackCommand
}

// NewBulkTrackCommand constructs the batch handler.
func NewBulkTrackCommand(cfg BulkTrackCommandConfig) *BulkTrackCommand {
	return &BulkTrackCommand{
		users: cfg.Users,
		track: cfg.Track,
	}
}

var _ gocommand.Commander[BulkTrackInput] = (*BulkTrackCommand)(nil)

// Execute processes entries in order and tallies the report. The report
// always satisfies Total == Succeeded + Failed with one envelope per entry.
func (c *BulkTrackCommand) Execute(ctx context.Context, input BulkTrackInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if c.track == nil {
		return ErrMissingTrackCommand
	}

	report := types.BulkTrackReport{
		Total:   len(input.Entries),
		Results: make([]types.TrackResult, 0, len(input.Entries)),
	}

	for _, entry := range input.Entries {
		result := c.trackEntry(ctx, entry, input.Request)
		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	if input.Result != nil {
		*input.Result = report
	}
	return nil
}

func (c *BulkTrackCommand) trackEntry(ctx context.Context, entry types.BulkTrackEntry, req types.RequestInfo) types.TrackResult {
	if entry.UserID == uuid.Nil {
		return types.TrackResult{Success: false, Reason: types.ReasonUserRequired}
	}
	user, err := c.users.GetUser(ctx, entry.UserID, types.UserLookup{})
	if err != nil {
		return types.TrackResult{Success: false, Reason: types.ReasonUserNotFound}
	}

	result := types.TrackResult{}
	trackErr := c.track.Execute(ctx, TrackInput{
		User:         user,
		ActivityType: entry.ActivityType,
		Metadata:     entry.Metadata,
		Request:      req,
		Result:       &result,
	})
	if trackErr != nil {
		return types.TrackResult{Success: false, Reason: trackErr.Error()}
	}
	return result
}
