package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned for unknown or expired session tokens.
var ErrSessionNotFound = errors.New("session not found")

var _ SessionRepository = (*PostgresSessionStore)(nil)

// SessionRepository resolves session tokens to user identities.
type SessionRepository interface {
	// FindUserID returns the user id bound to a live (non-expired) session
	// token, or ErrSessionNotFound.
	FindUserID(ctx context.Context, token string) (string, error)
}

// PostgresSessionStore implements SessionRepository on a pgx pool.
type PostgresSessionStore struct {
	db *pgxpool.Pool
}

func NewPostgresSessionStore(db *pgxpool.Pool) *PostgresSessionStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) FindUserID(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx,
		`SELECT user_id FROM sessions WHERE token = $1 AND expires_at > $2`,
		token, time.Now().UTC(),
	).Scan(&userID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return userID, nil
}
