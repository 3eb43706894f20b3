package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-activity/pkg/tenantctx"
	"github.com/goliatone/go-activity/pkg/types"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the bun-backed user repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type userStore interface {
	repository.Repository[*Record]
}

// Repository persists users. Reads default to the kept view; discarded rows
// only surface when the caller opts in.
type Repository struct {
	userStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the repository with default handlers unless a
// pre-built generic repository is supplied.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("user: db required")
	}
	store := cfg.Repository
	if store == nil {
		store = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(entry *Record) uuid.UUID {
				if entry == nil {
					return uuid.Nil
				}
				return entry.ID
			},
			SetID: func(entry *Record, id uuid.UUID) {
				if entry != nil {
					entry.ID = id
				}
			},
		})
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		userStore: store,
		db:        cfg.DB,
		clock:     clock,
		idGen:     idGen,
	}, nil
}

var _ types.UserRepository = (*Repository)(nil)

// GetUser fetches a user by id. The default view skips discarded rows;
// lookup.IncludeDiscarded widens it.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID, lookup types.UserLookup) (*types.User, error) {
	entry := &Record{}
	q := r.db.NewSelect().Model(entry).Where("u.id = ?", id)
	if !lookup.IncludeDiscarded {
		q = q.Where("u.discarded_at IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return toUser(entry), nil
}

// CreateUser inserts a user. Email and company are required, email is unique
// within the company, and the role must be one of the recognized values.
func (r *Repository) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	if user == nil {
		return nil, goerrors.New("user: payload required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, goerrors.New("user: email required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if user.CompanyID == uuid.Nil {
		return nil, goerrors.New("user: company required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	role := user.Role
	if role == "" {
		role = types.RoleUser
	}
	if !role.Valid() {
		return nil, goerrors.New("user: invalid role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": string(user.Role)})
	}

	entry := fromUser(user)
	entry.Role = string(role)
	entry.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if entry.ID == uuid.Nil {
		entry.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	created, err := r.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	return toUser(created), nil
}

// CountUsers counts kept users. The count is scoped to the ambient tenant
// unless the context explicitly opts out.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	q := r.db.NewSelect().
		Model((*Record)(nil)).
		Where("u.discarded_at IS NULL")
	if !tenantctx.Unscoped(ctx) {
		tenant, err := tenantctx.RequireTenant(ctx)
		if err != nil {
			return 0, err
		}
		q = q.Where("u.company_id = ?", tenant)
	}
	return q.Count(ctx)
}

// DiscardUser soft-deletes: the row stays and keeps its activity history.
// Discarding an already discarded user is a no-op.
func (r *Repository) DiscardUser(ctx context.Context, id uuid.UUID) error {
	now := r.clock.Now()
	res, err := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("discarded_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("discarded_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, err := r.db.NewSelect().
			Model((*Record)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(id)
		}
	}
	return nil
}

// DeleteUser hard-deletes. Users referenced by activities are protected so
// the activity feed never loses attribution.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	activities, err := r.db.NewSelect().
		Table("activities").
		Where("user_id = ?", id).
		Count(ctx)
	if err != nil {
		return err
	}
	if activities > 0 {
		return goerrors.Wrap(types.ErrUserHasActivities, goerrors.CategoryValidation, "user: delete blocked by activity history").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"user_id":    id.String(),
				"activities": activities,
			})
	}
	res, err := r.db.NewDelete().
		Model((*Record)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id uuid.UUID) error {
	return goerrors.Wrap(types.ErrUserNotFound, goerrors.CategoryNotFound, "user: not found").
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"user_id": id.String()})
}
