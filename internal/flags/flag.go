// Package flags defines the domain model shared by the targeting engine,
// the impact estimator, the persistence layer, and the API surface.
package flags

import "time"

// FeatureFlag is the unit of configuration. Name is the immutable natural key.
type FeatureFlag struct {
	// ID is the internal surrogate key assigned by the store. Read-only.
	ID int64 `json:"id"`

	// Name is the globally unique identity of the flag (slug format).
	Name string `json:"name"`

	// Description provides optional context about the flag's purpose.
	Description string `json:"description"`

	// Enabled is the master switch. If false, the flag evaluates to false
	// for everyone regardless of any targeting rule.
	Enabled bool `json:"enabled"`

	// RolloutPercentage gates gradual exposure. Nil means no percentage
	// rollout rule is configured; 0 and 100 are valid configured values.
	RolloutPercentage *int `json:"rollout_percentage,omitempty"`

	// AllowedUserIDs grants the flag to explicitly listed users.
	AllowedUserIDs []string `json:"allowed_user_ids,omitempty"`

	// AllowedWorkspaceIDs grants the flag to every member of a listed workspace.
	AllowedWorkspaceIDs []string `json:"allowed_workspace_ids,omitempty"`

	// AllowedDomains grants the flag to users whose email domain matches an
	// entry (e.g. "example.com"). Entries may carry a leading "@".
	AllowedDomains []string `json:"allowed_domains,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTargetingRules reports whether any targeting signal is configured.
// A flag without rules is on for nobody even when Enabled is true.
func (f *FeatureFlag) HasTargetingRules() bool {
	return f.RolloutPercentage != nil ||
		len(f.AllowedUserIDs) > 0 ||
		len(f.AllowedWorkspaceIDs) > 0 ||
		len(f.AllowedDomains) > 0
}

// User is the resolved user record backing an evaluation subject.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// UserContext is the evaluation subject. User is nil when the session
// resolved to an identity whose record no longer exists (deleted account);
// that state is evaluatable and always decides false.
type UserContext struct {
	UserID string `json:"user_id"`
	User   *User  `json:"user,omitempty"`
}

// EvaluationResult pairs a decision with its operator-facing justification.
// It is computed per call and never persisted.
type EvaluationResult struct {
	Decision bool   `json:"decision"`
	Reason   string `json:"reason"`
}

// DebugInfo is the structured explanation for one (flag, user) pair.
// It exposes the flag's raw targeting configuration and nothing else.
type DebugInfo struct {
	Flag   string `json:"flag"`
	Exists bool   `json:"exists"`

	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email,omitempty"`

	Enabled             bool     `json:"enabled"`
	RolloutPercentage   *int     `json:"rollout_percentage,omitempty"`
	AllowedUserIDs      []string `json:"allowed_user_ids,omitempty"`
	AllowedWorkspaceIDs []string `json:"allowed_workspace_ids,omitempty"`
	AllowedDomains      []string `json:"allowed_domains,omitempty"`
	HasTargetingRules   bool     `json:"has_targeting_rules"`

	Result EvaluationResult `json:"result"`
}
