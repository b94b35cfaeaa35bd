package probe

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidVersions is returned when the candidate list breaks its invariants.
var ErrInvalidVersions = errors.New("invalid candidate version list")

// ParseVersion parses a candidate version leniently: "v18.20.8", "1.13" and
// "1.21.0" are all accepted.
func ParseVersion(v Version) (*semver.Version, error) {
	parsed, err := semver.NewVersion(string(v))
	if err != nil {
		return nil, fmt.Errorf("version %q: %w", v, err)
	}
	return parsed, nil
}

// ValidateVersions checks that versions is non-empty and strictly ascending.
func ValidateVersions(versions []Version) error {
	if len(versions) == 0 {
		return fmt.Errorf("%w: at least one version is required", ErrInvalidVersions)
	}
	var prev *semver.Version
	for i, v := range versions {
		cur, err := ParseVersion(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidVersions, err)
		}
		if prev != nil && !prev.LessThan(cur) {
			return fmt.Errorf("%w: %s at index %d is not newer than %s", ErrInvalidVersions, v, i, versions[i-1])
		}
		prev = cur
	}
	return nil
}
