package flags

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidPercentage signals a rollout value outside [0, 100].
// Values are never silently clamped.
var ErrInvalidPercentage = errors.New("rollout percentage must be between 0 and 100")

// flagNameRegex keeps names URL-safe: lowercase letters, digits, hyphens and
// underscores. Compiled once at package initialization.
var flagNameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateName enforces the format and length rules for the natural key.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("flag name is required")
	}
	if len(name) > 255 {
		return errors.New("flag name must be at most 255 characters")
	}
	if !flagNameRegex.MatchString(name) {
		return fmt.Errorf("flag name %q must contain only lowercase letters, numbers, hyphens and underscores", name)
	}
	return nil
}

// ValidatePercentage checks a configured rollout value. A nil pointer means
// no percentage rule and is always valid.
func ValidatePercentage(percentage *int) error {
	if percentage == nil {
		return nil
	}
	if *percentage < 0 || *percentage > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidPercentage, *percentage)
	}
	return nil
}
