package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// FlagParams carries the mutable fields for create and update operations.
// Name identifies the flag and is never changed by an update.
type FlagParams struct {
	Name                string
	Description         string
	Enabled             bool
	RolloutPercentage   *int
	AllowedUserIDs      []string
	AllowedWorkspaceIDs []string
	AllowedDomains      []string
}

func (p *FlagParams) validate() error {
	if err := flags.ValidateName(p.Name); err != nil {
		return err
	}
	return flags.ValidatePercentage(p.RolloutPercentage)
}

// CreateFlag registers a new flag. Admin-gated. Returns
// store.ErrFlagAlreadyExists (wrapped) when the name is taken.
func (s *Service) CreateFlag(ctx context.Context, sessionToken string, params FlagParams) (*flags.FeatureFlag, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flag := &flags.FeatureFlag{
		Name:                params.Name,
		Description:         params.Description,
		Enabled:             params.Enabled,
		RolloutPercentage:   params.RolloutPercentage,
		AllowedUserIDs:      params.AllowedUserIDs,
		AllowedWorkspaceIDs: params.AllowedWorkspaceIDs,
		AllowedDomains:      params.AllowedDomains,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.flagRepo.Insert(ctx, flag); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "flag created",
		slog.String("flag", flag.Name),
		slog.Bool("enabled", flag.Enabled))
	return flag, nil
}

// UpdateFlag replaces every mutable field of an existing flag. Admin-gated.
func (s *Service) UpdateFlag(ctx context.Context, sessionToken string, params FlagParams) (*flags.FeatureFlag, error) {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	current, err := s.flagRepo.RequireByName(ctx, params.Name)
	if err != nil {
		return nil, err
	}

	current.Description = params.Description
	current.Enabled = params.Enabled
	current.RolloutPercentage = params.RolloutPercentage
	current.AllowedUserIDs = params.AllowedUserIDs
	current.AllowedWorkspaceIDs = params.AllowedWorkspaceIDs
	current.AllowedDomains = params.AllowedDomains
	current.UpdatedAt = time.Now().UTC()

	if err := s.flagRepo.Update(ctx, current); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, current.Name)

	s.logger.InfoContext(ctx, "flag updated", slog.String("flag", current.Name))
	return current, nil
}

// SetFlagEnabled flips the master switch. Admin-gated.
func (s *Service) SetFlagEnabled(ctx context.Context, sessionToken, name string, enabled bool) error {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return err
	}

	if err := s.flagRepo.SetEnabled(ctx, name, enabled, time.Now().UTC()); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, name)

	s.logger.InfoContext(ctx, "flag toggled",
		slog.String("flag", name),
		slog.Bool("enabled", enabled))
	return nil
}

// SetFlagRollout adjusts the rollout percentage. Admin-gated. Rejects values
// outside [0, 100] with flags.ErrInvalidPercentage before touching the store.
func (s *Service) SetFlagRollout(ctx context.Context, sessionToken, name string, percentage int) error {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return err
	}
	if err := flags.ValidatePercentage(&percentage); err != nil {
		return err
	}

	if err := s.flagRepo.SetRollout(ctx, name, percentage, time.Now().UTC()); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, name)

	s.logger.InfoContext(ctx, "flag rollout changed",
		slog.String("flag", name),
		slog.Int("percentage", percentage))
	return nil
}

// ArchiveFlag removes a flag permanently. Admin-gated. Archiving twice
// returns store.ErrFlagNotFound (wrapped); the operation is not idempotent
// so that operators notice double-archives.
func (s *Service) ArchiveFlag(ctx context.Context, sessionToken, name string) error {
	if err := s.admin.RequireAdmin(ctx, sessionToken); err != nil {
		return err
	}

	if err := s.flagRepo.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to archive: %w", err)
	}
	s.cache.Invalidate(ctx, name)

	s.logger.InfoContext(ctx, "flag archived", slog.String("flag", name))
	return nil
}
