package service

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// reasonFlagMissing explains a debug lookup for a name no flag carries.
const reasonFlagMissing = "Flag does not exist"

// GetFlagDebugInfo explains one (flag, session user) pair. A missing flag is
// a valid answer (Exists=false, decision false), not an error; only a broken
// session or a failing store surface as errors.
func (s *Service) GetFlagDebugInfo(ctx context.Context, name, sessionToken string) (*flags.DebugInfo, error) {
	userCtx, err := s.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	flag, err := s.getFlag(ctx, name)
	if err != nil {
		return nil, err
	}

	info := &flags.DebugInfo{
		Flag:   name,
		UserID: userCtx.UserID,
	}
	if userCtx.User != nil {
		info.UserEmail = userCtx.User.Email
	}

	if flag == nil {
		info.Result = flags.EvaluationResult{Decision: false, Reason: reasonFlagMissing}
		return info, nil
	}

	info.Exists = true
	info.Enabled = flag.Enabled
	info.RolloutPercentage = flag.RolloutPercentage
	info.AllowedUserIDs = flag.AllowedUserIDs
	info.AllowedWorkspaceIDs = flag.AllowedWorkspaceIDs
	info.AllowedDomains = flag.AllowedDomains
	info.HasTargetingRules = flag.HasTargetingRules()
	info.Result = s.engine.EvaluateWithReason(ctx, flag, userCtx)
	return info, nil
}
