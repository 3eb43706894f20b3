package service

import (
	"context"

	"github.com/goliatone/go-activity/command"
	"github.com/goliatone/go-activity/pkg/types"
	"github.com/goliatone/go-activity/policy"
	"github.com/goliatone/go-activity/query"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-masker"
)

// Service is the entry point for go-activity. It wires repositories, the
// tracking policy, the dispatch queue, and the command/query facades supplied
// by the host application.
type Service struct {
	cfg      Config
	policy   command.TrackingPolicy
	commands Commands
	queries  Queries
}

// Commands exposes the service command handlers.
type Commands struct {
	Track     *command.TrackCommand
	BulkTrack *command.BulkTrackCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Summary      *query.SummaryQuery
	Stats        *query.StatsQuery
	ActivityFeed *query.ActivityFeedQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB, cached repositories, hooks, etc.).
type Config struct {
	CompanyRepository  types.CompanyRepository
	UserRepository     types.UserRepository
	ActivityRepository types.ActivityRepository
	Aggregator         types.ActivityAggregator
	Queue              types.DispatchQueue
	Policy             command.TrackingPolicy
	PolicyDefaults     map[string]any
	FeatureGate        featuregate.FeatureGate
	Masker             *masker.Masker
	Hooks              types.Hooks
	Clock              types.Clock
	IDGenerator        types.IDGenerator
	Logger             types.Logger
	AsyncThreshold     int
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)

	trackingPolicy := norm.Policy
	if trackingPolicy == nil {
		trackingPolicy = policy.New(policy.Config{
			Defaults: norm.PolicyDefaults,
			Gate:     norm.FeatureGate,
		})
	}

	aggregator := norm.Aggregator
	if aggregator == nil {
		if cast, ok := norm.ActivityRepository.(types.ActivityAggregator); ok {
			aggregator = cast
		}
	}
	norm.Aggregator = aggregator

	s := &Service{
		cfg:    norm,
		policy: trackingPolicy,
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Policy exposes the tracking policy so transports can answer "is tracking
// on" without running the full pipeline.
func (s *Service) Policy() command.TrackingPolicy {
	if s == nil {
		return nil
	}
	return s.policy
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.CompanyRepository != nil &&
		s.cfg.UserRepository != nil &&
		s.cfg.ActivityRepository != nil &&
		s.cfg.Aggregator != nil &&
		s.policy != nil
}

// HealthCheck surfaces missing configuration so upstream transports can gate
// readiness probes on it.
func (s *Service) HealthCheck(ctx context.Context) error {
	if !s.Ready() {
		return types.ErrServiceNotReady
	}
	if s.cfg.CompanyRepository == nil {
		return types.ErrMissingCompanyRepository
	}
	if s.cfg.UserRepository == nil {
		return types.ErrMissingUserRepository
	}
	if s.cfg.ActivityRepository == nil {
		return types.ErrMissingActivityRepository
	}
	if s.cfg.Aggregator == nil {
		return types.ErrMissingAggregator
	}
	return nil
}

func (s *Service) buildCommands() Commands {
	track := command.NewTrackCommand(command.TrackCommandConfig{
		Companies:      s.cfg.CompanyRepository,
		Activities:     s.cfg.ActivityRepository,
		Queue:          s.cfg.Queue,
		Policy:         s.policy,
		Masker:         s.cfg.Masker,
		Hooks:          s.cfg.Hooks,
		Clock:          s.cfg.Clock,
		Logger:         s.cfg.Logger,
		AsyncThreshold: s.cfg.AsyncThreshold,
	})
	return Commands{
		Track: track,
		BulkTrack: command.NewBulkTrackCommand(command.BulkTrackCommandConfig{
			Users: s.cfg.UserRepository,
			Track: track,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		Summary:      query.NewSummaryQuery(s.cfg.Aggregator, s.cfg.Clock),
		Stats:        query.NewStatsQuery(s.cfg.Aggregator, s.cfg.UserRepository, s.cfg.Clock),
		ActivityFeed: query.NewActivityFeedQuery(s.cfg.ActivityRepository),
	}
}
