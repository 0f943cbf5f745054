// Package targeting decides whether a feature flag is on for a user.
// It combines the flag's targeting rules (explicit users, workspaces, email
// domains, percentage rollout) as a logical OR and produces both a boolean
// decision and a human-readable justification for operators.
package targeting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// Evaluation reasons surfaced to operators. Step order only affects which
// reason wins when several signals match; the decision itself is an OR and
// does not depend on ordering.
const (
	ReasonFlagDisabled = "flag disabled globally"
	ReasonUserNotFound = "user not found"
	ReasonUserAllow    = "explicit user allow"
	ReasonWorkspace    = "workspace membership match"
	ReasonDomain       = "domain match"
	ReasonNoRules      = "no targeting rules configured"
	ReasonNoMatch      = "targeting rules exist but user does not match"
)

// MembershipResolver is the external workspace-membership collaborator.
// It is consulted only when the flag carries a workspace allowlist.
type MembershipResolver interface {
	ListWorkspacesForUser(ctx context.Context, userID string) ([]string, error)
}

// Engine evaluates flags against user contexts. It holds no mutable state;
// a single instance is shared by all callers.
type Engine struct {
	memberships MembershipResolver
	logger      *slog.Logger
}

// New creates an Engine. The resolver is required; if logger is nil it
// defaults to slog.Default().
func New(memberships MembershipResolver, logger *slog.Logger) *Engine {
	if memberships == nil {
		panic("targeting: membership resolver cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{memberships: memberships, logger: logger}
}

// Evaluate returns the boolean decision for one (flag, user) pair.
// It is a thin wrapper over the internal evaluator so that it can never
// drift from EvaluateWithReason.
func (e *Engine) Evaluate(ctx context.Context, flag *flags.FeatureFlag, user flags.UserContext) bool {
	return e.evaluate(ctx, flag, user).Decision
}

// EvaluateWithReason returns the decision plus its justification. It exists
// purely for operator-facing explainability and never changes behavior.
func (e *Engine) EvaluateWithReason(ctx context.Context, flag *flags.FeatureFlag, user flags.UserContext) flags.EvaluationResult {
	return e.evaluate(ctx, flag, user)
}

// evaluate is the single source of truth for targeting semantics.
//
// Ordered check, short-circuiting on the first sufficient signal:
//  1. master switch off            -> false
//  2. no resolved user record      -> false
//  3. explicit user allowlist      -> true
//  4. workspace membership         -> true
//  5. email domain allowlist       -> true
//  6. percentage rollout           -> bucket < percentage
//  7. no targeting rules at all    -> false
//  8. rules exist, none matched    -> false
func (e *Engine) evaluate(ctx context.Context, flag *flags.FeatureFlag, user flags.UserContext) flags.EvaluationResult {
	if !flag.Enabled {
		return flags.EvaluationResult{Decision: false, Reason: ReasonFlagDisabled}
	}

	if user.User == nil {
		return flags.EvaluationResult{Decision: false, Reason: ReasonUserNotFound}
	}

	if slices.Contains(flag.AllowedUserIDs, user.UserID) {
		return flags.EvaluationResult{Decision: true, Reason: ReasonUserAllow}
	}

	if e.matchesWorkspace(ctx, flag, user.UserID) {
		return flags.EvaluationResult{Decision: true, Reason: ReasonWorkspace}
	}

	if matchesDomain(flag.AllowedDomains, user.User.Email) {
		return flags.EvaluationResult{Decision: true, Reason: ReasonDomain}
	}

	if flag.RolloutPercentage != nil {
		percentage := *flag.RolloutPercentage
		bucket := Bucket(user.UserID, flag.Name)
		if bucket < percentage {
			return flags.EvaluationResult{
				Decision: true,
				Reason:   fmt.Sprintf("rollout %d%% includes user bucket %d", percentage, bucket),
			}
		}
		return flags.EvaluationResult{
			Decision: false,
			Reason:   fmt.Sprintf("rollout %d%% excludes user bucket %d", percentage, bucket),
		}
	}

	if !flag.HasTargetingRules() {
		return flags.EvaluationResult{Decision: false, Reason: ReasonNoRules}
	}

	return flags.EvaluationResult{Decision: false, Reason: ReasonNoMatch}
}

// matchesWorkspace checks the workspace allowlist against the collaborator.
// Resolver failures are fail-open for the remaining signals: the error is
// logged and the step reports no match instead of aborting the evaluation.
func (e *Engine) matchesWorkspace(ctx context.Context, flag *flags.FeatureFlag, userID string) bool {
	if len(flag.AllowedWorkspaceIDs) == 0 {
		return false
	}

	memberships, err := e.memberships.ListWorkspacesForUser(ctx, userID)
	if err != nil {
		e.logger.Error("workspace membership lookup failed",
			slog.String("flag", flag.Name),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}

	for _, workspaceID := range memberships {
		if slices.Contains(flag.AllowedWorkspaceIDs, workspaceID) {
			return true
		}
	}
	return false
}

// matchesDomain compares the email's domain against each allowlist entry.
// The comparison is case-insensitive and exact (never a substring match);
// entries may carry a leading "@".
func matchesDomain(allowed []string, email string) bool {
	if len(allowed) == 0 || email == "" {
		return false
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	emailDomain := email[at+1:]

	for _, entry := range allowed {
		if strings.EqualFold(strings.TrimPrefix(entry, "@"), emailDomain) {
			return true
		}
	}
	return false
}
