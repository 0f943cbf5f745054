package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse/gatehouse/internal/flags"
)

var _ UserRepository = (*PostgresUserStore)(nil)

// UserRepository exposes the user population to evaluation and impact.
type UserRepository interface {
	// FindByID returns the user record or (nil, nil) when absent. A missing
	// record is a valid, evaluatable state (deleted account).
	FindByID(ctx context.Context, id string) (*flags.User, error)

	// FindByEmail looks up a user by lowercased email, or (nil, nil).
	FindByEmail(ctx context.Context, email string) (*flags.User, error)

	// ListAll returns the full population snapshot for impact estimation.
	ListAll(ctx context.Context) ([]flags.User, error)
}

// PostgresUserStore implements UserRepository on a pgx connection pool.
type PostgresUserStore struct {
	db *pgxpool.Pool
}

func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*flags.User, error) {
	var u flags.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, is_admin FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.IsAdmin)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %q: %w", id, err)
	}
	return &u, nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*flags.User, error) {
	var u flags.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, is_admin FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.IsAdmin)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresUserStore) ListAll(ctx context.Context) ([]flags.User, error) {
	rows, err := s.db.Query(ctx, `SELECT id, email, is_admin FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []flags.User
	for rows.Next() {
		var u flags.User
		if err := rows.Scan(&u.ID, &u.Email, &u.IsAdmin); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
