// Package service composes the flag store, targeting engine, impact
// estimator and auth collaborators into the public surface callers use.
// Per-user evaluation is open to any valid session; listing, impact and
// every lifecycle mutation are admin-gated.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/impact"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/targeting"
)

// FlagCache is the read-path cache in front of the flag store. All methods
// are fail-open; implementations never surface cache errors to callers.
type FlagCache interface {
	Get(ctx context.Context, name string) (*flags.FeatureFlag, bool)
	Set(ctx context.Context, name string, flag *flags.FeatureFlag)
	Invalidate(ctx context.Context, name string)
}

// noopCache backs deployments (and tests) that run without a cache.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*flags.FeatureFlag, bool) { return nil, false }
func (noopCache) Set(context.Context, string, *flags.FeatureFlag)       {}
func (noopCache) Invalidate(context.Context, string)                    {}

// Service is the façade over the flag engine. It holds no mutable state;
// one instance serves all requests.
type Service struct {
	flagRepo   store.FlagRepository
	users      store.UserRepository
	workspaces store.WorkspaceRepository
	sessions   auth.SessionResolver
	admin      auth.AdminGate
	engine     *targeting.Engine
	cache      FlagCache
	logger     *slog.Logger
}

// New wires the service. cache may be nil (no caching); logger may be nil
// (defaults to slog.Default()); everything else is mandatory.
func New(
	flagRepo store.FlagRepository,
	users store.UserRepository,
	workspaces store.WorkspaceRepository,
	sessions auth.SessionResolver,
	admin auth.AdminGate,
	engine *targeting.Engine,
	cache FlagCache,
	logger *slog.Logger,
) *Service {
	if flagRepo == nil {
		panic("service: flag repository cannot be nil")
	}
	if users == nil {
		panic("service: user repository cannot be nil")
	}
	if workspaces == nil {
		panic("service: workspace repository cannot be nil")
	}
	if sessions == nil {
		panic("service: session resolver cannot be nil")
	}
	if admin == nil {
		panic("service: admin gate cannot be nil")
	}
	if engine == nil {
		panic("service: targeting engine cannot be nil")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		flagRepo:   flagRepo,
		users:      users,
		workspaces: workspaces,
		sessions:   sessions,
		admin:      admin,
		engine:     engine,
		cache:      cache,
		logger:     logger,
	}
}

// getFlag serves reads through the cache, falling back to the store.
// Absence is (nil, nil): evaluation treats a missing flag as off.
func (s *Service) getFlag(ctx context.Context, name string) (*flags.FeatureFlag, error) {
	if f, ok := s.cache.Get(ctx, name); ok {
		return f, nil
	}

	f, err := s.flagRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if f != nil {
		s.cache.Set(ctx, name, f)
	}
	return f, nil
}

// IsFlagEnabled decides one flag for the session's user. A missing flag is
// off, never an error; an invalid session propagates auth.ErrSessionInvalid.
func (s *Service) IsFlagEnabled(ctx context.Context, name, sessionToken string) (bool, error) {
	userCtx, err := s.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		return false, err
	}

	flag, err := s.getFlag(ctx, name)
	if err != nil {
		return false, err
	}
	if flag == nil {
		return false, nil
	}

	decision := s.engine.Evaluate(ctx, flag, userCtx)
	observability.RecordEvaluation(decision)
	return decision, nil
}

// GetFlagStatuses decides a batch of flags with a single session resolution.
func (s *Service) GetFlagStatuses(ctx context.Context, names []string, sessionToken string) (map[string]bool, error) {
	userCtx, err := s.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(names))
	for _, name := range names {
		flag, err := s.getFlag(ctx, name)
		if err != nil {
			return nil, err
		}
		if flag == nil {
			results[name] = false
			continue
		}
		decision := s.engine.Evaluate(ctx, flag, userCtx)
		observability.RecordEvaluation(decision)
		results[name] = decision
	}
	return results, nil
}

// ListFlags returns every flag. Admin-gated.
func (s *Service) ListFlags(ctx context.Context, sessionToken string) ([]flags.FeatureFlag, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return nil, err
	}
	return s.flagRepo.ListAll(ctx)
}

// GetImpactStats estimates exposure across the whole flag set. Admin-gated.
// The store snapshot is taken here so the estimator stays a pure function.
func (s *Service) GetImpactStats(ctx context.Context, sessionToken string) (impact.Stats, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return impact.Stats{}, err
	}

	allFlags, err := s.flagRepo.ListAll(ctx)
	if err != nil {
		return impact.Stats{}, fmt.Errorf("failed to snapshot flags: %w", err)
	}
	allUsers, err := s.users.ListAll(ctx)
	if err != nil {
		return impact.Stats{}, fmt.Errorf("failed to snapshot users: %w", err)
	}

	return impact.Estimate(allFlags, allUsers), nil
}

// ListWorkspaces returns every workspace for the admin console. Admin-gated.
func (s *Service) ListWorkspaces(ctx context.Context, sessionToken string) ([]store.Workspace, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return nil, err
	}
	return s.workspaces.ListAll(ctx)
}

// UserFlagResult is one row of a per-user flag report.
type UserFlagResult struct {
	Flag    string `json:"flag"`
	Enabled bool   `json:"enabled"`
	Result  bool   `json:"result"`
	Reason  string `json:"reason"`
}

// UserFlagsReport evaluates every flag for one looked-up user.
type UserFlagsReport struct {
	UserEmail string           `json:"user_email"`
	UserID    string           `json:"user_id"`
	Flags     []UserFlagResult `json:"flags"`
}

// FindFlagsForUser evaluates the full flag set for the user behind the given
// email. Admin-gated. Returns (nil, nil) when no such user exists.
func (s *Service) FindFlagsForUser(ctx context.Context, sessionToken, email string) (*UserFlagsReport, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	allFlags, err := s.flagRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	userCtx := flags.UserContext{UserID: user.ID, User: user}
	report := &UserFlagsReport{
		UserEmail: email,
		UserID:    user.ID,
		Flags:     make([]UserFlagResult, 0, len(allFlags)),
	}
	for i := range allFlags {
		flag := &allFlags[i]
		result := s.engine.EvaluateWithReason(ctx, flag, userCtx)
		report.Flags = append(report.Flags, UserFlagResult{
			Flag:    flag.Name,
			Enabled: flag.Enabled,
			Result:  result.Decision,
			Reason:  result.Reason,
		})
	}
	return report, nil
}
