package user

import (
	"time"

	"github.com/goliatone/go-activity/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted row in users. A non-NULL discarded_at marks the
// row soft-deleted; default reads skip those rows.
type Record struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          uuid.UUID  `bun:",pk,type:uuid"`
	CompanyID   uuid.UUID  `bun:"company_id,notnull,type:uuid"`
	Email       string     `bun:"email,notnull"`
	Name        string     `bun:"name,notnull"`
	Role        string     `bun:"role,notnull"`
	DiscardedAt *time.Time `bun:"discarded_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

func toUser(entry *Record) *types.User {
	if entry == nil {
		return nil
	}
	return &types.User{
		ID:          entry.ID,
		CompanyID:   entry.CompanyID,
		Email:       entry.Email,
		Name:        entry.Name,
		Role:        types.Role(entry.Role),
		DiscardedAt: entry.DiscardedAt,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

func fromUser(user *types.User) *Record {
	if user == nil {
		return nil
	}
	return &Record{
		ID:          user.ID,
		CompanyID:   user.CompanyID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		DiscardedAt: user.DiscardedAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
