// Package store provides the data access layer for gatehouse. It handles
// all direct interactions with PostgreSQL using the pgx driver; every other
// component depends only on the repository interfaces, never on SQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// Compile-time check that PostgresFlagStore satisfies the contract.
var _ FlagRepository = (*PostgresFlagStore)(nil)

// FlagRepository is the persistence contract for feature flags.
type FlagRepository interface {
	// FindByName returns the flag or (nil, nil) when absent.
	FindByName(ctx context.Context, name string) (*flags.FeatureFlag, error)

	// RequireByName returns the flag or ErrFlagNotFound when absent.
	RequireByName(ctx context.Context, name string) (*flags.FeatureFlag, error)

	// Insert persists a new flag and populates its ID. Returns
	// ErrFlagAlreadyExists when the name is taken.
	Insert(ctx context.Context, f *flags.FeatureFlag) error

	// Update fully replaces description, enabled state and every targeting
	// field of the named flag. Returns ErrFlagNotFound when absent.
	Update(ctx context.Context, f *flags.FeatureFlag) error

	// SetEnabled patches the master switch.
	SetEnabled(ctx context.Context, name string, enabled bool, updatedAt time.Time) error

	// SetRollout patches the rollout percentage.
	SetRollout(ctx context.Context, name string, percentage int, updatedAt time.Time) error

	// Delete removes the flag record (hard delete).
	Delete(ctx context.Context, name string) error

	// ListAll returns every flag, ordered by name.
	ListAll(ctx context.Context) ([]flags.FeatureFlag, error)
}

// PostgresFlagStore implements FlagRepository on a pgx connection pool.
type PostgresFlagStore struct {
	db *pgxpool.Pool
}

// NewPostgresFlagStore creates the repository. Panics on a nil pool: that is
// a wiring bug, not a runtime condition.
func NewPostgresFlagStore(db *pgxpool.Pool) *PostgresFlagStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresFlagStore{db: db}
}

const flagColumns = `id, name, description, enabled, rollout_percentage,
	allowed_user_ids, allowed_workspace_ids, allowed_domains, created_at, updated_at`

func scanFlag(row pgx.Row) (*flags.FeatureFlag, error) {
	var f flags.FeatureFlag
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Description,
		&f.Enabled,
		&f.RolloutPercentage,
		&f.AllowedUserIDs,
		&f.AllowedWorkspaceIDs,
		&f.AllowedDomains,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByName looks up a flag by its natural key. Absence is not an error.
func (s *PostgresFlagStore) FindByName(ctx context.Context, name string) (*flags.FeatureFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM flags WHERE name = $1`

	f, err := scanFlag(s.db.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find flag %q: %w", name, err)
	}
	return f, nil
}

// RequireByName is FindByName with absence promoted to ErrFlagNotFound.
func (s *PostgresFlagStore) RequireByName(ctx context.Context, name string) (*flags.FeatureFlag, error) {
	f, err := s.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("flag %q: %w", name, ErrFlagNotFound)
	}
	return f, nil
}

// Insert persists a new flag. Timestamps are provided by the caller (the
// lifecycle manager owns createdAt/updatedAt semantics).
func (s *PostgresFlagStore) Insert(ctx context.Context, f *flags.FeatureFlag) error {
	query := `
		INSERT INTO flags (name, description, enabled, rollout_percentage,
			allowed_user_ids, allowed_workspace_ids, allowed_domains, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		f.Name,
		f.Description,
		f.Enabled,
		f.RolloutPercentage,
		f.AllowedUserIDs,
		f.AllowedWorkspaceIDs,
		f.AllowedDomains,
		f.CreatedAt,
		f.UpdatedAt,
	).Scan(&f.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on the name column.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("flag %q: %w", f.Name, ErrFlagAlreadyExists)
		}
		return fmt.Errorf("failed to insert flag %q: %w", f.Name, err)
	}
	return nil
}

// Update replaces the mutable fields of the named flag in one statement, so
// the write either fully applies or fails before any change.
func (s *PostgresFlagStore) Update(ctx context.Context, f *flags.FeatureFlag) error {
	query := `
		UPDATE flags
		SET description = $2,
			enabled = $3,
			rollout_percentage = $4,
			allowed_user_ids = $5,
			allowed_workspace_ids = $6,
			allowed_domains = $7,
			updated_at = $8
		WHERE name = $1
	`

	tag, err := s.db.Exec(ctx, query,
		f.Name,
		f.Description,
		f.Enabled,
		f.RolloutPercentage,
		f.AllowedUserIDs,
		f.AllowedWorkspaceIDs,
		f.AllowedDomains,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update flag %q: %w", f.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %q: %w", f.Name, ErrFlagNotFound)
	}
	return nil
}

// SetEnabled patches only the master switch.
func (s *PostgresFlagStore) SetEnabled(ctx context.Context, name string, enabled bool, updatedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE flags SET enabled = $2, updated_at = $3 WHERE name = $1`,
		name, enabled, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set enabled on flag %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %q: %w", name, ErrFlagNotFound)
	}
	return nil
}

// SetRollout patches only the rollout percentage. Range validation happens
// in the lifecycle manager; the CHECK constraint is the last line of defense.
func (s *PostgresFlagStore) SetRollout(ctx context.Context, name string, percentage int, updatedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE flags SET rollout_percentage = $2, updated_at = $3 WHERE name = $1`,
		name, percentage, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set rollout on flag %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %q: %w", name, ErrFlagNotFound)
	}
	return nil
}

// Delete hard-deletes the flag record.
func (s *PostgresFlagStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM flags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete flag %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %q: %w", name, ErrFlagNotFound)
	}
	return nil
}

// ListAll returns the full flag set ordered by name (deterministic).
func (s *PostgresFlagStore) ListAll(ctx context.Context) ([]flags.FeatureFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM flags ORDER BY name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer rows.Close()

	var out []flags.FeatureFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flag row: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
