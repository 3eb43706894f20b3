package command

import (
	"context"
	"time"

	"github.com/goliatone/go-activity/activity"
	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-masker"
	"github.com/google/uuid"
)

// defaultAsyncThreshold is the hourly write count past which tracking defers
// persistence to the dispatch queue.
const defaultAsyncThreshold = 1000

// loadWindow is the trailing window the load check counts over.
const loadWindow = time.Hour

// TrackingPolicy decides whether an activity type may be tracked for a company.
type TrackingPolicy interface {
	Enabled(ctx context.Context, company *types.Company, activityType types.ActivityType) (bool, error)
}

// TrackInput carries one activity event through the ingestion pipeline.
type TrackInput struct {
	User         *types.User
	ActivityType string
	Metadata     map[string]any
	Request      types.RequestInfo
	OccurredAt   time.Time
	Result       *types.TrackResult
}

// Type implements gocommand.Message.
func (TrackInput) Type() string {
	return "command.activity.track"
}

// Validate implements gocommand.Message.
func (input TrackInput) Validate() error {
	switch {
	case input.User == nil:
		return ErrUserRequired
	case input.ActivityType == "":
		return ErrActivityTypeRequired
	default:
		return nil
	}
}

// TrackCommandConfig holds dependencies for the ingestion pipeline.
type TrackCommandConfig struct {
	Companies      types.CompanyRepository
	Activities     types.ActivityRepository
	Queue          types.DispatchQueue
	Policy         TrackingPolicy
	Masker         *masker.Masker
	Hooks          types.Hooks
	Clock          types.Clock
	Logger         types.Logger
	AsyncThreshold int
}

// TrackCommand runs the ingestion pipeline for a single event: validate the
// type, check the company tracking policy, enrich and sanitize metadata, then
// persist synchronously or enqueue for deferred persistence depending on
// recent write load. Expected rejections and unexpected failures both land in
// the result envelope; Execute never propagates them as errors.
type TrackCommand struct {
	companies  types.CompanyRepository
	activities types.ActivityRepository
	queue      types.DispatchQueue
	policy     TrackingPolicy
	mask       *masker.Masker
	hooks      types.Hooks
	clock      types.Clock
	logger     types.Logger
	threshold  int
}

// NewTrackCommand constructs the track handler.
func NewTrackCommand(cfg TrackCommandConfig) *TrackCommand {
	threshold := cfg.AsyncThreshold
	if threshold <= 0 {
		threshold = defaultAsyncThreshold
	}
	return &TrackCommand{
		companies:  cfg.Companies,
		activities: cfg.Activities,
		queue:      cfg.Queue,
		policy:     cfg.Policy,
		mask:       cfg.Masker,
		hooks:      safeHooks(cfg.Hooks),
		clock:      safeClock(cfg.Clock),
		logger:     safeLogger(cfg.Logger),
		threshold:  threshold,
	}
}

var _ gocommand.Commander[TrackInput] = (*TrackCommand)(nil)

// Execute runs the pipeline and writes the outcome to input.Result. Only
// wiring mistakes surface as errors; per-event outcomes, rejections and
// storage failures included, land in the envelope.
func (c *TrackCommand) Execute(ctx context.Context, input TrackInput) error {
	if c.activities == nil {
		return types.ErrMissingActivityRepository
	}
	if c.companies == nil {
		return types.ErrMissingCompanyRepository
	}
	if c.policy == nil {
		return ErrMissingPolicy
	}

	user := input.User
	if user == nil || user.ID == uuid.Nil {
		c.fail(input, types.ReasonUserRequired)
		return nil
	}

	activityType, ok := types.ParseActivityType(input.ActivityType)
	if !ok {
		c.fail(input, types.ReasonInvalidType)
		return nil
	}

	ctx = tenantctx.WithTenant(ctx, user.CompanyID)

	company, err := c.companies.GetCompany(ctx, user.CompanyID)
	if err != nil {
		c.failErr(input, "track: company lookup failed", user, activityType, err)
		return nil
	}

	enabled, err := c.policy.Enabled(ctx, company, activityType)
	if err != nil {
		c.failErr(input, "track: policy check failed", user, activityType, err)
		return nil
	}
	if !enabled {
		c.fail(input, types.ReasonTrackingDisabled)
		return nil
	}

	metadata := activity.SanitizeMetadata(c.mask, activity.EnrichMetadata(input.Metadata, input.Request))

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now(c.clock)
	}

	if c.shouldDefer(ctx, input, user, activityType) {
		payload := types.TrackPayload{
			UserID:       user.ID,
			CompanyID:    user.CompanyID,
			ActivityType: activityType,
			Metadata:     metadata,
			OccurredAt:   occurredAt,
		}
		if err := c.queue.Enqueue(ctx, payload); err != nil {
			c.failErr(input, "track: enqueue failed", user, activityType, err)
			return nil
		}
		c.succeed(input, types.ReasonQueued, nil)
		return nil
	}

	created, err := c.activities.CreateActivity(ctx, types.ActivityRecord{
		UserID:       user.ID,
		CompanyID:    user.CompanyID,
		ActivityType: activityType,
		Metadata:     metadata,
		OccurredAt:   occurredAt,
	})
	if err != nil {
		c.failErr(input, "track: persist failed", user, activityType, err)
		return nil
	}

	c.succeed(input, types.ReasonTracked, created)
	emitTrackHook(ctx, c.hooks, *created)
	return nil
}

// shouldDefer reads recent write volume and reports whether persistence moves
// to the queue. The count and the subsequent write are not atomic; a burst
// racing the check lands on whichever side it observed, which is acceptable
// for a load valve. A failed count falls back to the sync path.
func (c *TrackCommand) shouldDefer(ctx context.Context, input TrackInput, user *types.User, activityType types.ActivityType) bool {
	if c.queue == nil {
		return false
	}
	cutoff := now(c.clock).Add(-loadWindow)
	count, err := c.activities.CountCreatedSince(ctx, cutoff)
	if err != nil {
		c.logger.Error("track: load check failed, writing synchronously", err,
			"user_id", user.ID.String(),
			"company_id", user.CompanyID.String(),
			"activity_type", activityType.String(),
		)
		return false
	}
	return count > c.threshold
}

// TrackOrFail runs the pipeline and converts a failed envelope into a typed
// error. Hosts that prefer error control flow over envelope inspection use
// this instead of Execute.
func (c *TrackCommand) TrackOrFail(ctx context.Context, input TrackInput) (*types.TrackResult, error) {
	result := &types.TrackResult{}
	input.Result = result
	if err := c.Execute(ctx, input); err != nil {
		return nil, err
	}
	if result.Success {
		return result, nil
	}
	return result, failureError(result.Reason)
}

func failureError(reason string) error {
	switch reason {
	case types.ReasonUserRequired:
		return goerrors.Wrap(ErrUserRequired, goerrors.CategoryValidation, "track rejected").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("TRACK_USER_REQUIRED")
	case types.ReasonInvalidType:
		return goerrors.Wrap(ErrInvalidActivityType, goerrors.CategoryValidation, "track rejected").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("TRACK_INVALID_TYPE")
	case types.ReasonTrackingDisabled:
		return goerrors.Wrap(ErrTrackingDisabled, goerrors.CategoryAuthz, "track rejected").
			WithCode(goerrors.CodeForbidden).
			WithTextCode("TRACK_DISABLED")
	default:
		return goerrors.New(reason, goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode("TRACK_FAILED")
	}
}

func (c *TrackCommand) fail(input TrackInput, reason string) {
	if input.Result != nil {
		*input.Result = types.TrackResult{Success: false, Reason: reason}
	}
}

func (c *TrackCommand) failErr(input TrackInput, msg string, user *types.User, activityType types.ActivityType, err error) {
	c.logger.Error(msg, err,
		"user_id", user.ID.String(),
		"company_id", user.CompanyID.String(),
		"activity_type", activityType.String(),
	)
	c.fail(input, err.Error())
}

func (c *TrackCommand) succeed(input TrackInput, reason string, record *types.ActivityRecord) {
	if input.Result != nil {
		*input.Result = types.TrackResult{Success: true, Reason: reason, Record: record}
	}
}
