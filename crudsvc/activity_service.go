package crudsvc

import (
	"context"

	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// ActivityServiceConfig wires dependencies for the activity feed controller.
type ActivityServiceConfig struct {
	Activities types.ActivityRepository
	Logger     types.Logger
}

// ActivityService provides a read-only go-crud service over the activity feed
// so admin panels can list/inspect activity without bypassing the ingestion
// pipeline. Activities are only ever written by the pipeline, so every
// mutating operation is rejected.
type ActivityService struct {
	activities types.ActivityRepository
	logger     types.Logger
}

// NewActivityService constructs the adapter.
func NewActivityService(cfg ActivityServiceConfig) *ActivityService {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &ActivityService{
		activities: cfg.Activities,
		logger:     logger,
	}
}

func (s *ActivityService) Create(crud.Context, *types.ActivityRecord) (*types.ActivityRecord, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *ActivityService) CreateBatch(crud.Context, []*types.ActivityRecord) ([]*types.ActivityRecord, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *ActivityService) Update(crud.Context, *types.ActivityRecord) (*types.ActivityRecord, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *ActivityService) UpdateBatch(crud.Context, []*types.ActivityRecord) ([]*types.ActivityRecord, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *ActivityService) Delete(crud.Context, *types.ActivityRecord) error {
	return notSupported(crud.OpDelete)
}

func (s *ActivityService) DeleteBatch(crud.Context, []*types.ActivityRecord) error {
	return notSupported(crud.OpDeleteBatch)
}

// Index lists the tenant's feed honoring the standard filter query params:
// user_id, activity_type, start_date, end_date, limit, offset.
func (s *ActivityService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*types.ActivityRecord, int, error) {
	if s.activities == nil {
		return nil, 0, goerrors.New("activity repository missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	scoped, err := tenantScope(ctx)
	if err != nil {
		return nil, 0, err
	}
	params := types.FilterParams{
		UserID:       queryUUID(ctx, "user_id"),
		ActivityType: ctx.Query("activity_type"),
		StartDate:    ctx.Query("start_date"),
		EndDate:      ctx.Query("end_date"),
		Limit:        queryInt(ctx, "limit", 50),
		Offset:       queryInt(ctx, "offset", 0),
	}
	entries, err := s.activities.FilterByParams(scoped, params)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*types.ActivityRecord, 0, len(entries))
	for i := range entries {
		records = append(records, &entries[i])
	}
	return records, len(records), nil
}

// Show fetches a single activity scoped to the caller's tenant.
func (s *ActivityService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*types.ActivityRecord, error) {
	if s.activities == nil {
		return nil, goerrors.New("activity repository missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	activityID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid activity id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	scoped, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.activities.GetActivity(scoped, activityID)
}

// tenantScope binds the ambient tenant from the authenticated actor carried
// on the request context.
func tenantScope(ctx crud.Context) (context.Context, error) {
	userCtx := ctx.UserContext()
	if _, ok := tenantctx.TenantID(userCtx); ok {
		return userCtx, nil
	}
	if actor, ok := auth.ActorFromContext(userCtx); ok && actor != nil {
		tenant, err := tenantctx.FromActorContext(actor)
		if err != nil {
			return nil, err
		}
		return tenantctx.WithTenant(userCtx, tenant), nil
	}
	if _, err := tenantctx.RequireTenant(userCtx); err != nil {
		return nil, err
	}
	return userCtx, nil
}
