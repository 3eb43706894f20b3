package activity

import (
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted row in activities.
type Record struct {
	bun.BaseModel `bun:"table:activities,alias:a"`

	ID           uuid.UUID      `bun:",pk,type:uuid"`
	UserID       uuid.UUID      `bun:"user_id,type:uuid,notnull"`
	CompanyID    uuid.UUID      `bun:"company_id,type:uuid,notnull"`
	ActivityType string         `bun:"activity_type,notnull"`
	Metadata     map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt   time.Time      `bun:"occurred_at,notnull"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull"`
}

func toRecord(entry *Record) types.ActivityRecord {
	if entry == nil {
		return types.ActivityRecord{}
	}
	return types.ActivityRecord{
		ID:           entry.ID,
		UserID:       entry.UserID,
		CompanyID:    entry.CompanyID,
		ActivityType: types.ActivityType(entry.ActivityType),
		Metadata:     cloneMap(entry.Metadata),
		OccurredAt:   entry.OccurredAt,
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
	}
}

func fromRecord(record types.ActivityRecord) *Record {
	return &Record{
		ID:           record.ID,
		UserID:       record.UserID,
		CompanyID:    record.CompanyID,
		ActivityType: record.ActivityType.String(),
		Metadata:     cloneMap(record.Metadata),
		OccurredAt:   record.OccurredAt,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

// FromActivityRecord converts a domain record into the bun model so transports
// can reuse the conversion without duplicating it.
func FromActivityRecord(record types.ActivityRecord) *Record {
	return fromRecord(record)
}

// ToActivityRecord converts the bun model into the domain record.
func ToActivityRecord(entry *Record) types.ActivityRecord {
	return toRecord(entry)
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
