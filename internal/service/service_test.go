package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/targeting"
)

// fakeFlagRepo is an in-memory FlagRepository keyed by flag name.
type fakeFlagRepo struct {
	mu     sync.Mutex
	byName map[string]*flags.FeatureFlag
	nextID int64
}

func newFakeFlagRepo() *fakeFlagRepo {
	return &fakeFlagRepo{byName: make(map[string]*flags.FeatureFlag), nextID: 1}
}

func (r *fakeFlagRepo) FindByName(_ context.Context, name string) (*flags.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byName[name]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFlagRepo) RequireByName(ctx context.Context, name string) (*flags.FeatureFlag, error) {
	f, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, store.ErrFlagNotFound
	}
	return f, nil
}

func (r *fakeFlagRepo) Insert(_ context.Context, f *flags.FeatureFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[f.Name]; ok {
		return store.ErrFlagAlreadyExists
	}
	f.ID = r.nextID
	r.nextID++
	cp := *f
	r.byName[f.Name] = &cp
	return nil
}

func (r *fakeFlagRepo) Update(_ context.Context, f *flags.FeatureFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[f.Name]; !ok {
		return store.ErrFlagNotFound
	}
	cp := *f
	r.byName[f.Name] = &cp
	return nil
}

func (r *fakeFlagRepo) SetEnabled(_ context.Context, name string, enabled bool, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byName[name]
	if !ok {
		return store.ErrFlagNotFound
	}
	f.Enabled = enabled
	f.UpdatedAt = updatedAt
	return nil
}

func (r *fakeFlagRepo) SetRollout(_ context.Context, name string, percentage int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byName[name]
	if !ok {
		return store.ErrFlagNotFound
	}
	f.RolloutPercentage = &percentage
	f.UpdatedAt = updatedAt
	return nil
}

func (r *fakeFlagRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return store.ErrFlagNotFound
	}
	delete(r.byName, name)
	return nil
}

func (r *fakeFlagRepo) ListAll(_ context.Context) ([]flags.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flags.FeatureFlag, 0, len(r.byName))
	for _, f := range r.byName {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeUserRepo struct {
	byID map[string]*flags.User
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*flags.User, error) {
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*flags.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]flags.User, error) {
	out := make([]flags.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeWorkspaceRepo struct {
	memberships map[string][]string
	all         []store.Workspace
}

func (r *fakeWorkspaceRepo) ListWorkspacesForUser(_ context.Context, userID string) ([]string, error) {
	return r.memberships[userID], nil
}

func (r *fakeWorkspaceRepo) ListAll(_ context.Context) ([]store.Workspace, error) {
	return r.all, nil
}

type fakeSessionRepo struct {
	byToken map[string]string
}

func (r *fakeSessionRepo) FindUserID(_ context.Context, token string) (string, error) {
	if id, ok := r.byToken[token]; ok {
		return id, nil
	}
	return "", store.ErrSessionNotFound
}

// recordingCache counts invalidations so mutation tests can assert on them.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*flags.FeatureFlag
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*flags.FeatureFlag)}
}

func (c *recordingCache) Get(_ context.Context, name string) (*flags.FeatureFlag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[name]
	return f, ok
}

func (c *recordingCache) Set(_ context.Context, name string, f *flags.FeatureFlag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = f
}

func (c *recordingCache) Invalidate(_ context.Context, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
	c.invalidated = append(c.invalidated, name)
}

const (
	tokenAdmin  = "tok-admin"
	tokenMember = "tok-member"
	tokenBogus  = "tok-bogus"
)

type fixture struct {
	svc   *Service
	repo  *fakeFlagRepo
	cache *recordingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := &fakeUserRepo{byID: map[string]*flags.User{
		"u-admin":  {ID: "u-admin", Email: "root@example.com", IsAdmin: true},
		"u-member": {ID: "u-member", Email: "member@example.com"},
	}}
	workspaces := &fakeWorkspaceRepo{
		memberships: map[string][]string{"u-member": {"ws-1"}},
		all: []store.Workspace{
			{ID: "ws-1", Name: "Acme", Slug: "acme"},
		},
	}
	sessions := &fakeSessionRepo{byToken: map[string]string{
		tokenAdmin:  "u-admin",
		tokenMember: "u-member",
	}}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := auth.NewService(sessions, users)
	engine := targeting.New(workspaces, quiet)
	repo := newFakeFlagRepo()
	cache := newRecordingCache()

	return &fixture{
		svc:   New(repo, users, workspaces, authSvc, authSvc, engine, cache, quiet),
		repo:  repo,
		cache: cache,
	}
}

func mustCreate(t *testing.T, fx *fixture, params FlagParams) *flags.FeatureFlag {
	t.Helper()
	f, err := fx.svc.CreateFlag(context.Background(), tokenAdmin, params)
	require.NoError(t, err)
	return f
}

func intPtr(v int) *int { return &v }

func TestIsFlagEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Missing flag is off, not an error", func(t *testing.T) {
		fx := newFixture(t)
		on, err := fx.svc.IsFlagEnabled(ctx, "ghost", tokenMember)
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("Explicit user allow wins", func(t *testing.T) {
		fx := newFixture(t)
		mustCreate(t, fx, FlagParams{
			Name: "beta", Enabled: true,
			AllowedUserIDs: []string{"u-member"},
		})

		on, err := fx.svc.IsFlagEnabled(ctx, "beta", tokenMember)
		require.NoError(t, err)
		assert.True(t, on)
	})

	t.Run("Disabled flag is off for everyone", func(t *testing.T) {
		fx := newFixture(t)
		mustCreate(t, fx, FlagParams{
			Name: "beta", Enabled: false,
			AllowedUserIDs: []string{"u-member"},
		})

		on, err := fx.svc.IsFlagEnabled(ctx, "beta", tokenMember)
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("Invalid session propagates", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.svc.IsFlagEnabled(ctx, "beta", tokenBogus)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("Read populates the cache", func(t *testing.T) {
		fx := newFixture(t)
		mustCreate(t, fx, FlagParams{Name: "beta", Enabled: true})

		_, err := fx.svc.IsFlagEnabled(ctx, "beta", tokenMember)
		require.NoError(t, err)

		_, ok := fx.cache.Get(ctx, "beta")
		assert.True(t, ok)
	})
}

func TestGetFlagStatuses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	mustCreate(t, fx, FlagParams{
		Name: "dark-mode", Enabled: true,
		AllowedDomains: []string{"example.com"},
	})
	mustCreate(t, fx, FlagParams{Name: "dormant", Enabled: false})

	statuses, err := fx.svc.GetFlagStatuses(ctx, []string{"dark-mode", "dormant", "ghost"}, tokenMember)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{
		"dark-mode": true,
		"dormant":   false,
		"ghost":     false,
	}, statuses)
}

func TestGetFlagDebugInfo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Missing flag reports Exists=false", func(t *testing.T) {
		fx := newFixture(t)
		info, err := fx.svc.GetFlagDebugInfo(ctx, "ghost", tokenMember)
		require.NoError(t, err)

		assert.False(t, info.Exists)
		assert.False(t, info.Result.Decision)
		assert.Equal(t, "Flag does not exist", info.Result.Reason)
		assert.Equal(t, "u-member", info.UserID)
		assert.Equal(t, "member@example.com", info.UserEmail)
	})

	t.Run("Existing flag exposes configuration and reason", func(t *testing.T) {
		fx := newFixture(t)
		mustCreate(t, fx, FlagParams{
			Name: "beta", Enabled: true,
			AllowedWorkspaceIDs: []string{"ws-1"},
			RolloutPercentage:   intPtr(25),
		})

		info, err := fx.svc.GetFlagDebugInfo(ctx, "beta", tokenMember)
		require.NoError(t, err)

		assert.True(t, info.Exists)
		assert.True(t, info.Enabled)
		assert.True(t, info.HasTargetingRules)
		assert.Equal(t, []string{"ws-1"}, info.AllowedWorkspaceIDs)
		assert.True(t, info.Result.Decision)
		assert.Equal(t, targeting.ReasonWorkspace, info.Result.Reason)
	})
}

func TestAdminGating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	t.Run("Non-admin is rejected everywhere", func(t *testing.T) {
		_, err := fx.svc.ListFlags(ctx, tokenMember)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		_, err = fx.svc.GetImpactStats(ctx, tokenMember)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		_, err = fx.svc.CreateFlag(ctx, tokenMember, FlagParams{Name: "nope"})
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		err = fx.svc.ArchiveFlag(ctx, tokenMember, "nope")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("Admin passes", func(t *testing.T) {
		_, err := fx.svc.ListFlags(ctx, tokenAdmin)
		assert.NoError(t, err)

		_, err = fx.svc.ListWorkspaces(ctx, tokenAdmin)
		assert.NoError(t, err)
	})
}

func TestGetImpactStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	mustCreate(t, fx, FlagParams{
		Name: "beta", Enabled: true,
		AllowedDomains: []string{"example.com"},
	})

	stats, err := fx.svc.GetImpactStats(ctx, tokenAdmin)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalUsers)
	require.Len(t, stats.FlagImpacts, 1)
	assert.Equal(t, "beta", stats.FlagImpacts[0].FlagName)
	assert.Equal(t, 2, stats.FlagImpacts[0].EstimatedAffectedCount)
}

func TestFindFlagsForUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixture(t)

	mustCreate(t, fx, FlagParams{
		Name: "beta", Enabled: true,
		AllowedUserIDs: []string{"u-member"},
	})
	mustCreate(t, fx, FlagParams{Name: "dormant", Enabled: false})

	t.Run("Evaluates every flag for the looked-up user", func(t *testing.T) {
		report, err := fx.svc.FindFlagsForUser(ctx, tokenAdmin, "member@example.com")
		require.NoError(t, err)
		require.NotNil(t, report)

		assert.Equal(t, "u-member", report.UserID)
		require.Len(t, report.Flags, 2)
		assert.Equal(t, "beta", report.Flags[0].Flag)
		assert.True(t, report.Flags[0].Result)
		assert.Equal(t, targeting.ReasonUserAllow, report.Flags[0].Reason)
		assert.False(t, report.Flags[1].Result)
	})

	t.Run("Unknown email yields nil report", func(t *testing.T) {
		report, err := fx.svc.FindFlagsForUser(ctx, tokenAdmin, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, report)
	})
}
