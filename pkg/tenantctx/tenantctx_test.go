package tenantctx

import (
	"context"
	"testing"

	"github.com/goliatone/go-activity/pkg/types"
	auth "github.com/goliatone/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWithTenant(t *testing.T) {
	companyID := uuid.New()
	ctx := WithTenant(context.Background(), companyID)

	got, ok := TenantID(ctx)
	require.True(t, ok)
	require.Equal(t, companyID, got)
	require.False(t, Unscoped(ctx))
}

func TestWithTenant_InnerBindingWins(t *testing.T) {
	outer := uuid.New()
	inner := uuid.New()

	ctx := WithTenant(context.Background(), outer)
	nested := WithTenant(ctx, inner)

	got, ok := TenantID(nested)
	require.True(t, ok)
	require.Equal(t, inner, got)

	// the outer context is untouched once the nested extent is gone
	got, ok = TenantID(ctx)
	require.True(t, ok)
	require.Equal(t, outer, got)
}

func TestWithoutTenant(t *testing.T) {
	ctx := WithTenant(context.Background(), uuid.New())
	cleared := WithoutTenant(ctx)

	_, ok := TenantID(cleared)
	require.False(t, ok)
	require.True(t, Unscoped(cleared))
}

func TestRequireTenant_Missing(t *testing.T) {
	_, err := RequireTenant(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrNoTenant)
}

func TestRequireTenant_Bound(t *testing.T) {
	companyID := uuid.New()
	got, err := RequireTenant(WithTenant(context.Background(), companyID))
	require.NoError(t, err)
	require.Equal(t, companyID, got)
}

func TestFromActorContext(t *testing.T) {
	companyID := uuid.New()
	got, err := FromActorContext(&auth.ActorContext{TenantID: companyID.String()})
	require.NoError(t, err)
	require.Equal(t, companyID, got)
}

func TestFromActorContext_Missing(t *testing.T) {
	_, err := FromActorContext(nil)
	require.ErrorIs(t, err, types.ErrNoTenant)

	_, err = FromActorContext(&auth.ActorContext{})
	require.ErrorIs(t, err, types.ErrNoTenant)
}

func TestFromActorContext_Invalid(t *testing.T) {
	_, err := FromActorContext(&auth.ActorContext{TenantID: "not-a-uuid"})
	require.Error(t, err)
}
