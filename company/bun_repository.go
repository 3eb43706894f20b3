package company

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-activity/pkg/types"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the bun-backed company repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type companyStore interface {
	repository.Repository[*Record]
}

// Repository persists companies. Companies are the tenant roots, so deletion
// is restricted while dependent users or activities exist.
type Repository struct {
	companyStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the repository, optionally wrapping reads in the
// cache decorator.
func NewRepository(cfg RepositoryConfig, options ...RepositoryOption) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("company: db required")
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

	opts := applyRepositoryOptions(options)
	if opts.CacheEnabled {
		if _, wrapped := store.(*repositorycache.CachedRepository[*Record]); !wrapped {
			cacheCfg := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheCfg = *opts.CacheConfig
			}
			service, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, err
			}
			store = repositorycache.New(store, service, cache.NewDefaultKeySerializer())
		}
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
		companyStore: store,
		db:           cfg.DB,
		clock:        clock,
		idGen:        idGen,
	}, nil
}

var _ types.CompanyRepository = (*Repository)(nil)

// GetCompany fetches a company by id. Reads go through the generic store so
// the cache decorator, when enabled, serves the tracking policy's per-event
// lookups.
func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*types.Company, error) {
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("id = ?", id).Limit(1)
		},
	}
	entries, _, err := r.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, notFound(id.String())
	}
	return toCompany(entries[0]), nil
}

// GetCompanyByName fetches a company by its unique name.
func (r *Repository) GetCompanyByName(ctx context.Context, name string) (*types.Company, error) {
	trimmed := strings.TrimSpace(name)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("name = ?", trimmed).Limit(1)
		},
	}
	entries, _, err := r.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, notFound(trimmed)
	}
	return toCompany(entries[0]), nil
}

// TrackingEnabled limits listings to companies with tracking turned on.
func TrackingEnabled() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("tracking_enabled = ?", true)
	}
}

// ListTrackingEnabled returns every company whose tracking flag is on.
func (r *Repository) ListTrackingEnabled(ctx context.Context) ([]*types.Company, error) {
	entries, _, err := r.List(ctx, TrackingEnabled())
	if err != nil {
		return nil, err
	}
	companies := make([]*types.Company, 0, len(entries))
	for _, entry := range entries {
		companies = append(companies, toCompany(entry))
	}
	return companies, nil
}

// CreateCompany inserts a company. Name is required and unique.
func (r *Repository) CreateCompany(ctx context.Context, company *types.Company) (*types.Company, error) {
	if company == nil || strings.TrimSpace(company.Name) == "" {
		return nil, goerrors.New("company: name required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	entry := fromCompany(company)
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
	return toCompany(created), nil
}

// UpdateCompany persists changed tracking flags/config.
func (r *Repository) UpdateCompany(ctx context.Context, company *types.Company) (*types.Company, error) {
	if company == nil || company.ID == uuid.Nil {
		return nil, goerrors.New("company: id required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	entry := fromCompany(company)
	entry.UpdatedAt = r.clock.Now()
	updated, err := r.Update(ctx, entry)
	if err != nil {
		return nil, err
	}
	return toCompany(updated), nil
}

// DeleteCompany removes a company with no dependents. Companies referenced by
// users (discarded ones included) or activities are protected: activity
// history must never be cascaded away.
func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	users, err := r.db.NewSelect().
		Table("users").
		Where("company_id = ?", id).
		Count(ctx)
	if err != nil {
		return err
	}
	activities, err := r.db.NewSelect().
		Table("activities").
		Where("company_id = ?", id).
		Count(ctx)
	if err != nil {
		return err
	}
	if users > 0 || activities > 0 {
		return goerrors.Wrap(types.ErrCompanyHasDependents, goerrors.CategoryValidation, "company: delete blocked by dependent records").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"company_id": id.String(),
				"users":      users,
				"activities": activities,
			})
	}
	_, err = r.db.NewDelete().
		Model((*Record)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func notFound(key string) error {
	return goerrors.Wrap(types.ErrCompanyNotFound, goerrors.CategoryNotFound, "company: not found").
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"company": key})
}
