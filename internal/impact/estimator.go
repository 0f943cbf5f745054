// Package impact estimates how many users each feature flag currently
// affects. It is a pure fold over a read-only snapshot of all flags and the
// full user population, so it can be tested without a live store.
package impact

import (
	"strings"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// estimatedUsersPerWorkspace is the heuristic used for workspace allowlists.
// An exact count would require a membership join over every listed
// workspace; impact is operational visibility, not billing-grade accuracy.
const estimatedUsersPerWorkspace = 10

// Breakdown reports the independent per-signal estimates for one flag.
type Breakdown struct {
	ByDomain       int `json:"by_domain"`
	ByRollout      int `json:"by_rollout"`
	ByUserIDs      int `json:"by_user_ids"`
	ByWorkspaceIDs int `json:"by_workspace_ids"`
}

// Entry is the aggregate for a single flag.
type Entry struct {
	FlagName               string    `json:"flag_name"`
	Enabled                bool      `json:"enabled"`
	EstimatedAffectedCount int       `json:"estimated_affected_count"`
	Breakdown              Breakdown `json:"breakdown"`
}

// Stats is the full impact report across the flag set.
type Stats struct {
	TotalUsers    int            `json:"total_users"`
	UsersByDomain map[string]int `json:"users_by_domain"`
	FlagImpacts   []Entry        `json:"flag_impacts"`
}

// Estimate computes the impact report for a snapshot of flags and users.
//
// The per-flag estimate is a conservative union: the four signal populations
// can overlap arbitrarily and no inclusion-exclusion is computed, so the
// affected count is the max of the signals rather than their sum, clamped to
// the population size (explicit allowlist ids count even when the account is
// unknown, so the raw max can exceed it).
func Estimate(all []flags.FeatureFlag, users []flags.User) Stats {
	usersByDomain := countUsersByDomain(users)

	stats := Stats{
		TotalUsers:    len(users),
		UsersByDomain: usersByDomain,
		FlagImpacts:   make([]Entry, 0, len(all)),
	}

	for _, flag := range all {
		stats.FlagImpacts = append(stats.FlagImpacts, estimateFlag(&flag, len(users), usersByDomain))
	}
	return stats
}

func estimateFlag(flag *flags.FeatureFlag, totalUsers int, usersByDomain map[string]int) Entry {
	entry := Entry{FlagName: flag.Name, Enabled: flag.Enabled}

	// A disabled flag affects nobody, whatever its rules say.
	if !flag.Enabled {
		return entry
	}

	b := Breakdown{
		ByDomain:       countByDomain(flag.AllowedDomains, usersByDomain),
		ByUserIDs:      len(flag.AllowedUserIDs),
		ByWorkspaceIDs: len(flag.AllowedWorkspaceIDs) * estimatedUsersPerWorkspace,
	}

	// The rollout percentage applies to users not already counted by the
	// other signals, to avoid double counting overlapping populations.
	if flag.RolloutPercentage != nil {
		remaining := totalUsers - b.ByDomain - b.ByUserIDs - b.ByWorkspaceIDs
		if remaining < 0 {
			remaining = 0
		}
		b.ByRollout = remaining * *flag.RolloutPercentage / 100
	}

	affected := max(b.ByDomain, b.ByRollout, b.ByUserIDs, b.ByWorkspaceIDs)
	if affected > totalUsers {
		affected = totalUsers
	}

	entry.EstimatedAffectedCount = affected
	entry.Breakdown = b
	return entry
}

// countUsersByDomain buckets the known population by lowercased email domain.
func countUsersByDomain(users []flags.User) map[string]int {
	byDomain := make(map[string]int)
	for _, u := range users {
		at := strings.LastIndex(u.Email, "@")
		if at < 0 || at == len(u.Email)-1 {
			continue
		}
		byDomain[strings.ToLower(u.Email[at+1:])]++
	}
	return byDomain
}

// countByDomain sums the known users in each allowed domain, deduplicating
// entries so a domain listed twice is not counted twice.
func countByDomain(allowed []string, usersByDomain map[string]int) int {
	seen := make(map[string]struct{}, len(allowed))
	total := 0
	for _, entry := range allowed {
		domain := strings.ToLower(strings.TrimPrefix(entry, "@"))
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		total += usersByDomain[domain]
	}
	return total
}
