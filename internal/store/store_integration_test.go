//go:build integration

// Package store_test contains integration tests for the data access layer.
// The '_test' suffix enforces black-box testing against the exported API.
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/testsupport"
)

// TestPostgresStores_Integration spins up one PostgreSQL container and runs
// scenarios against the real schema. The subtests share container state and
// run sequentially.
func TestPostgresStores_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err, "failed to start postgres container")
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	flagRepo := store.NewPostgresFlagStore(pgContainer.DB)
	userRepo := store.NewPostgresUserStore(pgContainer.DB)
	workspaceRepo := store.NewPostgresWorkspaceStore(pgContainer.DB)
	sessionRepo := store.NewPostgresSessionStore(pgContainer.DB)

	now := time.Now().UTC().Truncate(time.Microsecond)
	pct := 25

	t.Run("Insert and FindByName round-trips every field", func(t *testing.T) {
		input := &flags.FeatureFlag{
			Name:                "new-checkout",
			Description:         "phased checkout rewrite",
			Enabled:             true,
			RolloutPercentage:   &pct,
			AllowedUserIDs:      []string{"u-1", "u-2"},
			AllowedWorkspaceIDs: []string{"ws-1"},
			AllowedDomains:      []string{"example.com"},
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		require.NoError(t, flagRepo.Insert(ctx, input))
		assert.NotZero(t, input.ID, "expected DB to assign an ID")

		got, err := flagRepo.FindByName(ctx, "new-checkout")
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, input.ID, got.ID)
		assert.Equal(t, "phased checkout rewrite", got.Description)
		assert.True(t, got.Enabled)
		require.NotNil(t, got.RolloutPercentage)
		assert.Equal(t, 25, *got.RolloutPercentage)
		assert.Equal(t, []string{"u-1", "u-2"}, got.AllowedUserIDs)
		assert.Equal(t, []string{"ws-1"}, got.AllowedWorkspaceIDs)
		assert.Equal(t, []string{"example.com"}, got.AllowedDomains)
	})

	t.Run("Insert duplicate name is a conflict", func(t *testing.T) {
		dup := &flags.FeatureFlag{Name: "new-checkout", CreatedAt: now, UpdatedAt: now}
		err := flagRepo.Insert(ctx, dup)
		assert.ErrorIs(t, err, store.ErrFlagAlreadyExists)
	})

	t.Run("FindByName absence is nil nil", func(t *testing.T) {
		got, err := flagRepo.FindByName(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RequireByName absence is ErrFlagNotFound", func(t *testing.T) {
		_, err := flagRepo.RequireByName(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrFlagNotFound)
	})

	t.Run("SetEnabled and SetRollout patch in place", func(t *testing.T) {
		later := now.Add(time.Minute)

		require.NoError(t, flagRepo.SetEnabled(ctx, "new-checkout", false, later))
		require.NoError(t, flagRepo.SetRollout(ctx, "new-checkout", 80, later))

		got, err := flagRepo.RequireByName(ctx, "new-checkout")
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		require.NotNil(t, got.RolloutPercentage)
		assert.Equal(t, 80, *got.RolloutPercentage)

		assert.ErrorIs(t, flagRepo.SetEnabled(ctx, "ghost", true, later), store.ErrFlagNotFound)
	})

	t.Run("Update fully replaces targeting fields", func(t *testing.T) {
		got, err := flagRepo.RequireByName(ctx, "new-checkout")
		require.NoError(t, err)

		got.Enabled = true
		got.RolloutPercentage = nil
		got.AllowedUserIDs = nil
		got.AllowedDomains = []string{"other.net"}
		got.UpdatedAt = now.Add(2 * time.Minute)
		require.NoError(t, flagRepo.Update(ctx, got))

		reread, err := flagRepo.RequireByName(ctx, "new-checkout")
		require.NoError(t, err)
		assert.True(t, reread.Enabled)
		assert.Nil(t, reread.RolloutPercentage)
		assert.Empty(t, reread.AllowedUserIDs)
		assert.Equal(t, []string{"other.net"}, reread.AllowedDomains)
	})

	t.Run("ListAll orders by name", func(t *testing.T) {
		second := &flags.FeatureFlag{Name: "alpha", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, flagRepo.Insert(ctx, second))

		all, err := flagRepo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "alpha", all[0].Name)
		assert.Equal(t, "new-checkout", all[1].Name)
	})

	t.Run("Delete removes the flag and repeats fail", func(t *testing.T) {
		require.NoError(t, flagRepo.Delete(ctx, "alpha"))
		assert.ErrorIs(t, flagRepo.Delete(ctx, "alpha"), store.ErrFlagNotFound)
	})

	t.Run("Users workspaces and sessions wire together", func(t *testing.T) {
		_, err := pgContainer.DB.Exec(ctx, `
			INSERT INTO users (id, email, is_admin) VALUES
				('u-admin', 'root@example.com', TRUE),
				('u-member', 'member@example.com', FALSE);
			INSERT INTO workspaces (id, name, slug) VALUES ('ws-1', 'Acme', 'acme');
			INSERT INTO workspace_members (workspace_id, user_id) VALUES ('ws-1', 'u-member');
			INSERT INTO sessions (token, user_id, expires_at) VALUES
				('tok-live', 'u-member', now() + interval '1 hour'),
				('tok-dead', 'u-member', now() - interval '1 hour');
		`)
		require.NoError(t, err)

		user, err := userRepo.FindByID(ctx, "u-member")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "member@example.com", user.Email)
		assert.False(t, user.IsAdmin)

		byEmail, err := userRepo.FindByEmail(ctx, "  Root@Example.com ")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.True(t, byEmail.IsAdmin)

		memberships, err := workspaceRepo.ListWorkspacesForUser(ctx, "u-member")
		require.NoError(t, err)
		assert.Equal(t, []string{"ws-1"}, memberships)

		userID, err := sessionRepo.FindUserID(ctx, "tok-live")
		require.NoError(t, err)
		assert.Equal(t, "u-member", userID)

		// Expired tokens behave exactly like unknown tokens.
		_, err = sessionRepo.FindUserID(ctx, "tok-dead")
		assert.ErrorIs(t, err, store.ErrSessionNotFound)

		_, err = sessionRepo.FindUserID(ctx, "tok-unknown")
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}
