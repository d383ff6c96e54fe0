package catalog

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mod tags look like "v1.7.3"; a few early releases used "1.2" or "v1.5.1-hotfix".
var versionRegex = regexp.MustCompile(`^[vV]?(\d+)\.(\d+)(?:\.(\d+))?(?:[-+]?([a-zA-Z0-9.-]+))?$`)

// Version is a parsed release tag.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// ParseVersion parses a release tag such as "v1.7.3", "1.7" or "1.0.0-rc.1".
func ParseVersion(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	v := &Version{Prerelease: matches[4]}
	v.Major, _ = strconv.Atoi(matches[1])
	v.Minor, _ = strconv.Atoi(matches[2])
	if matches[3] != "" {
		v.Patch, _ = strconv.Atoi(matches[3])
	}
	return v, nil
}

// String returns the canonical form without the "v" prefix.
func (v *Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare returns -1, 0 or 1. A release without a suffix sorts after any
// suffixed build of the same number.
func (v *Version) Compare(other *Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, other.Patch); c != 0 {
		return c
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	default:
		return cmp.Compare(v.Prerelease, other.Prerelease)
	}
}

// CompareVersions compares two tags. It fails if either tag does not parse.
func CompareVersions(v1, v2 string) (int, error) {
	ver1, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version v1: %w", err)
	}

	ver2, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version v2: %w", err)
	}

	return ver1.Compare(ver2), nil
}

// NormalizeVersion removes the 'v' prefix if present
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
}

// IsNewer reports whether candidate is a later release than installed.
// Tags are compared as versions when both parse; otherwise publish dates decide.
func IsNewer(candidate, installed Release) bool {
	if c, err := CompareVersions(candidate.Tag, installed.Tag); err == nil {
		return c > 0
	}
	if candidate.PublishedAt.IsZero() || installed.PublishedAt.IsZero() {
		return false
	}
	return candidate.PublishedAt.After(installed.PublishedAt)
}
