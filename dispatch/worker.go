package dispatch

import (
	"context"
	"time"

	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 100 * time.Millisecond
)

// WorkerConfig wires the deferred persistence consumer.
type WorkerConfig struct {
	Queue      *Queue
	Users      types.UserRepository
	Activities types.ActivityRepository
	Logger     types.Logger
	// MaxAttempts bounds retries per payload; zero uses the default.
	MaxAttempts int
	// Backoff is the initial retry delay; it doubles per attempt.
	Backoff time.Duration
	// OnError receives payloads that exhausted their retries. Dropping a
	// payload silently is not acceptable, so hosts should wire this to
	// whatever surfaces operator alerts.
	OnError func(types.TrackPayload, error)
}

// Worker drains the dispatch queue and persists payloads through the same
// storage contract as the sync path, so deferred records are
// indistinguishable from synchronous ones.
type Worker struct {
	queue       *Queue
	users       types.UserRepository
	activities  types.ActivityRepository
	logger      types.Logger
	maxAttempts int
	backoff     time.Duration
	onError     func(types.TrackPayload, error)
}

// NewWorker constructs the consumer.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Queue == nil {
		return nil, ErrQueueClosed
	}
	if cfg.Activities == nil {
		return nil, types.ErrMissingActivityRepository
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Worker{
		queue:       cfg.Queue,
		users:       cfg.Users,
		activities:  cfg.Activities,
		logger:      logger,
		maxAttempts: attempts,
		backoff:     backoff,
		onError:     cfg.OnError,
	}, nil
}

// Run consumes payloads until the context is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-w.queue.Payloads():
			if !ok {
				return nil
			}
			w.handle(ctx, payload)
		}
	}
}

func (w *Worker) handle(ctx context.Context, payload types.TrackPayload) {
	err := w.persist(ctx, payload)
	if err == nil {
		return
	}
	w.logger.Error("dispatch: payload dropped after retries", err,
		"user_id", payload.UserID.String(),
		"company_id", payload.CompanyID.String(),
		"activity_type", payload.ActivityType.String(),
	)
	if w.onError != nil {
		w.onError(payload, err)
	}
}

// persist retries transient storage failures with doubling backoff. The
// lookup includes discarded users so a soft delete between enqueue and
// consumption never drops history; only a hard-deleted user fails the
// payload, without retrying.
func (w *Worker) persist(ctx context.Context, payload types.TrackPayload) error {
	ctx = tenantctx.WithTenant(ctx, payload.CompanyID)

	if w.users != nil {
		if _, err := w.users.GetUser(ctx, payload.UserID, types.UserLookup{IncludeDiscarded: true}); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "dispatch: user gone before deferred write")
		}
	}

	record := types.ActivityRecord{
		UserID:       payload.UserID,
		CompanyID:    payload.CompanyID,
		ActivityType: payload.ActivityType,
		Metadata:     payload.Metadata,
		OccurredAt:   payload.OccurredAt,
	}

	var lastErr error
	delay := w.backoff
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		_, err := w.activities.CreateActivity(ctx, record)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
