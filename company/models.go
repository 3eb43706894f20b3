package company

import (
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted row in companies.
type Record struct {
	bun.BaseModel `bun:"table:companies,alias:c"`

	ID              uuid.UUID      `bun:",pk,type:uuid"`
	Name            string         `bun:"name,notnull,unique"`
	TrackingEnabled bool           `bun:"tracking_enabled,notnull"`
	TrackingConfig  map[string]any `bun:"tracking_config,type:jsonb"`
	CreatedAt       time.Time      `bun:"created_at,notnull"`
	UpdatedAt       time.Time      `bun:"updated_at,notnull"`
}

func toCompany(entry *Record) *types.Company {
	if entry == nil {
		return nil
	}
	return &types.Company{
		ID:              entry.ID,
		Name:            entry.Name,
		TrackingEnabled: entry.TrackingEnabled,
		TrackingConfig:  cloneMap(entry.TrackingConfig),
		CreatedAt:       entry.CreatedAt,
		UpdatedAt:       entry.UpdatedAt,
	}
}

func fromCompany(company *types.Company) *Record {
	if company == nil {
		return nil
	}
	return &Record{
		ID:              company.ID,
		Name:            company.Name,
		TrackingEnabled: company.TrackingEnabled,
		TrackingConfig:  cloneMap(company.TrackingConfig),
		CreatedAt:       company.CreatedAt,
		UpdatedAt:       company.UpdatedAt,
	}
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
