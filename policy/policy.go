package policy

import (
	"context"
	"strings"

	"github.com/goliatone/go-activity/pkg/types"
	featuregate "github.com/goliatone/go-featuregate/gate"
	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
)

// FeatureTracking is the gate key consulted before any company-level checks.
// A disabled gate switches ingestion off for the resolved scope regardless of
// per-company configuration.
const FeatureTracking = "activity.tracking"

// Config keys recognized inside a company's tracking config.
const (
	ConfigKeyEnabledTypes  = "enabled_activity_types"
	ConfigKeyRetentionDays = "retention_days"
)

// Config wires the tracking policy.
type Config struct {
	// Defaults is the system-level tracking config layered under each
	// company's own config.
	Defaults map[string]any
	Gate     featuregate.FeatureGate
}

// Policy decides whether an activity may be tracked for a company. The
// decision layers the system defaults under the company's tracking config and
// consults the feature gate first.
type Policy struct {
	defaults map[string]any
	gate     featuregate.FeatureGate
}

// New constructs a tracking policy.
func New(cfg Config) *Policy {
	return &Policy{
		defaults: cloneMap(cfg.Defaults),
		gate:     cfg.Gate,
	}
}

// Enabled reports whether the activity type may be tracked for the company.
// A nil or tracking-disabled company rejects everything. An absent
// enabled_activity_types entry allows the full closed set.
func (p *Policy) Enabled(ctx context.Context, company *types.Company, activityType types.ActivityType) (bool, error) {
	if company == nil || !company.TrackingEnabled {
		return false, nil
	}

	on, err := p.gateEnabled(ctx, company.ID)
	if err != nil {
		return false, err
	}
	if !on {
		return false, nil
	}

	effective, err := p.Effective(company)
	if err != nil {
		return false, err
	}
	allowed, restricted := allowedTypes(effective)
	if !restricted {
		return true, nil
	}
	_, ok := allowed[strings.ToLower(activityType.String())]
	return ok, nil
}

// Effective merges the system defaults with the company's tracking config,
// company values winning.
func (p *Policy) Effective(company *types.Company) (map[string]any, error) {
	system := opts.NewScope("system", opts.ScopePrioritySystem,
		opts.WithScopeLabel("System Defaults"))
	layers := []opts.Layer[map[string]any]{
		opts.NewLayer(system, cloneMap(p.defaults), opts.WithSnapshotID[map[string]any](system.Name)),
	}
	if company != nil {
		tenant := opts.NewScope("tenant", opts.ScopePriorityTenant,
			opts.WithScopeLabel("Company"),
			opts.WithScopeMetadata(map[string]any{"company_id": company.ID.String()}))
		layers = append(layers, opts.NewLayer(tenant, cloneMap(company.TrackingConfig),
			opts.WithSnapshotID[map[string]any](tenant.Name)))
	}

	stack, err := opts.NewStack(layers...)
	if err != nil {
		return nil, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, err
	}
	return cloneMap(merged.Value), nil
}

// RetentionDays reads the retention hint from the effective config. Zero
// means no retention limit was configured.
func (p *Policy) RetentionDays(company *types.Company) (int, error) {
	effective, err := p.Effective(company)
	if err != nil {
		return 0, err
	}
	switch v := effective[ConfigKeyRetentionDays].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, nil
}

func (p *Policy) gateEnabled(ctx context.Context, companyID uuid.UUID) (bool, error) {
	if p.gate == nil {
		return true, nil
	}
	if companyID == uuid.Nil {
		return p.gate.Enabled(ctx, FeatureTracking)
	}
	return p.gate.Enabled(ctx, FeatureTracking, featuregate.WithScopeSet(featuregate.ScopeSet{
		System:   true,
		TenantID: companyID.String(),
	}))
}

// allowedTypes extracts the enabled_activity_types allow-list. The second
// return is false when no list was configured, meaning the full set applies.
func allowedTypes(effective map[string]any) (map[string]struct{}, bool) {
	raw, ok := effective[ConfigKeyEnabledTypes]
	if !ok || raw == nil {
		return nil, false
	}
	names := make(map[string]struct{})
	switch list := raw.(type) {
	case []string:
		for _, name := range list {
			names[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	case []any:
		for _, item := range list {
			if name, ok := item.(string); ok {
				names[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
			}
		}
	default:
		return nil, false
	}
	return names, true
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
