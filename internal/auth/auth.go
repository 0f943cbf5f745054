// Package auth provides the identity-resolution and authorization
// collaborators required by the flag service: resolving a session token to a
// user context and gating administrative operations.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/store"
)

var (
	// ErrSessionInvalid signals an unknown, empty or expired session token.
	// It is distinct from a valid session whose user record is missing;
	// the latter resolves successfully with a nil User.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrUnauthorized signals that the caller lacks administrative rights.
	ErrUnauthorized = errors.New("unauthorized")
)

// SessionResolver turns a session token into an evaluation subject.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (flags.UserContext, error)
}

// AdminGate authorizes management operations.
type AdminGate interface {
	RequireAdmin(ctx context.Context, token string) error
}

var (
	_ SessionResolver = (*Service)(nil)
	_ AdminGate       = (*Service)(nil)
)

// Service implements both collaborators against the session and user stores.
type Service struct {
	sessions store.SessionRepository
	users    store.UserRepository
}

func NewService(sessions store.SessionRepository, users store.UserRepository) *Service {
	if sessions == nil {
		panic("auth: session repository cannot be nil")
	}
	if users == nil {
		panic("auth: user repository cannot be nil")
	}
	return &Service{sessions: sessions, users: users}
}

// Resolve maps a token to a UserContext. An invalid token fails with
// ErrSessionInvalid; a valid token whose user record no longer exists
// resolves to a context with a nil User, which evaluates to false downstream.
func (s *Service) Resolve(ctx context.Context, token string) (flags.UserContext, error) {
	if token == "" {
		return flags.UserContext{}, ErrSessionInvalid
	}

	userID, err := s.sessions.FindUserID(ctx, token)
	if errors.Is(err, store.ErrSessionNotFound) {
		return flags.UserContext{}, ErrSessionInvalid
	}
	if err != nil {
		return flags.UserContext{}, fmt.Errorf("failed to resolve session: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return flags.UserContext{}, fmt.Errorf("failed to load user %q: %w", userID, err)
	}

	return flags.UserContext{UserID: userID, User: user}, nil
}

// RequireAdmin fails with ErrUnauthorized unless the session resolves to an
// administrator. Session errors propagate unchanged.
func (s *Service) RequireAdmin(ctx context.Context, token string) error {
	userCtx, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if userCtx.User == nil || !userCtx.User.IsAdmin {
		return ErrUnauthorized
	}
	return nil
}
