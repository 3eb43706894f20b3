package tenantctx

import (
	"context"

	"github.com/goliatone/go-activity/pkg/types"
	auth "github.com/goliatone/go-auth"
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const textCodeTenantMissing = "TENANT_CONTEXT_MISSING"

type contextKey int

const (
	tenantKey contextKey = iota
	unscopedKey
)

// WithTenant binds the ambient tenant for the dynamic extent of the returned
// context. Because the binding lives on the context value, the prior tenant
// (possibly none) is restored on every exit path automatically, including
// panics and early returns; there is no process-wide mutable state to reset.
func WithTenant(ctx context.Context, companyID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey, companyID)
}

// WithoutTenant explicitly clears the ambient tenant for operations that must
// cross tenants, such as bulk ingestion. Repositories treat this as an
// intentional unscoped read rather than a missing-tenant fault.
func WithoutTenant(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, tenantKey, uuid.Nil)
	return context.WithValue(ctx, unscopedKey, true)
}

// TenantID returns the ambient tenant, reporting whether one is bound.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Unscoped reports whether the context was explicitly marked cross-tenant.
func Unscoped(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	flagged, _ := ctx.Value(unscopedKey).(bool)
	return flagged
}

// RequireTenant returns the ambient tenant or a tenant-not-set failure. Data
// access with no tenant bound must halt here, never fall through to an
// implicit all-tenants view.
func RequireTenant(ctx context.Context) (uuid.UUID, error) {
	if id, ok := TenantID(ctx); ok {
		return id, nil
	}
	return uuid.Nil, goerrors.Wrap(types.ErrNoTenant, goerrors.CategoryAuthz, "go-activity: data access requires a tenant-scoped context").
		WithCode(goerrors.CodeForbidden).
		WithTextCode(textCodeTenantMissing)
}

// FromActorContext derives the tenant from the actor payload stored by
// go-auth middleware, for transports that authenticate before tracking.
func FromActorContext(actor *auth.ActorContext) (uuid.UUID, error) {
	if actor == nil || actor.TenantID == "" {
		return uuid.Nil, goerrors.Wrap(types.ErrNoTenant, goerrors.CategoryAuth, "go-activity: auth actor context carries no tenant").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(textCodeTenantMissing)
	}
	id, err := uuid.Parse(actor.TenantID)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryAuth, "go-activity: invalid tenant id on auth context").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(textCodeTenantMissing)
	}
	return id, nil
}

// FromRouterContext mirrors FromActorContext for router transports where
// middleware stores the actor payload directly on the router context.
func FromRouterContext(ctx router.Context) (uuid.UUID, error) {
	if ctx == nil {
		return uuid.Nil, goerrors.Wrap(types.ErrNoTenant, goerrors.CategoryAuth, "go-activity: missing router context").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(textCodeTenantMissing)
	}
	if actor, ok := auth.ActorFromRouterContext(ctx); ok && actor != nil {
		return FromActorContext(actor)
	}
	if actor, ok := auth.ActorFromContext(ctx.Context()); ok && actor != nil {
		return FromActorContext(actor)
	}
	return RequireTenant(ctx.Context())
}
