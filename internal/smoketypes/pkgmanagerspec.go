package smoketypes

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultVersionTag is used when a package manager spec carries no version.
const DefaultVersionTag = "latest"

// PkgManagerSpec identifies a package manager binary and version.
// It is the correlation key shared by every phase.
type PkgManagerSpec struct {
	// Name of the package manager, e.g. "npm".
	Name string `json:"name"`
	// Requested is the version range or dist-tag the user asked for.
	Requested string `json:"requested"`
	// Version is the concrete version, empty until resolved.
	Version string `json:"version,omitempty"`
	// IsSystem is set when the binary found on PATH is used as is
	// instead of a managed (corepack) download.
	IsSystem bool `json:"isSystem"`
}

// ParsePkgManagerSpec parses "name[@range]" strings like "npm@8" or "yarn@^1.22".
func ParsePkgManagerSpec(raw string) (PkgManagerSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PkgManagerSpec{}, fmt.Errorf("%w: empty package manager spec", ErrInvalidPkgManagerSpec)
	}

	name, requested, found := strings.Cut(raw, "@")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PkgManagerSpec{}, fmt.Errorf("%w: %q has no name", ErrInvalidPkgManagerSpec, raw)
	}
	requested = strings.TrimSpace(requested)
	if !found || requested == "" {
		requested = DefaultVersionTag
	}

	spec := PkgManagerSpec{Name: name, Requested: requested}
	if !spec.IsTag() {
		if _, err := semver.NewConstraint(requested); err != nil {
			return PkgManagerSpec{}, fmt.Errorf("%w: %q: %w", ErrInvalidPkgManagerSpec, raw, err)
		}
	}

	return spec, nil
}

// IsTag reports whether Requested is a dist-tag like "latest" rather than a semver range.
func (s PkgManagerSpec) IsTag() bool {
	if s.Requested == "" {
		return true
	}
	c := s.Requested[0]
	if (c == 'v' || c == 'V') && len(s.Requested) > 1 && s.Requested[1] >= '0' && s.Requested[1] <= '9' {
		return false
	}
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Satisfies reports whether the given concrete version matches the requested range.
// Dist-tags are satisfied by any valid version.
func (s PkgManagerSpec) Satisfies(version string) bool {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	if s.IsTag() {
		return true
	}
	c, err := semver.NewConstraint(s.Requested)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Resolved returns a copy of the spec pinned to the given version.
func (s PkgManagerSpec) Resolved(version string, system bool) PkgManagerSpec {
	s.Version = strings.TrimSpace(version)
	s.IsSystem = system
	return s
}

// Major returns the major version of the resolved version, or -1.
func (s PkgManagerSpec) Major() int64 {
	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return -1
	}
	return int64(v.Major())
}

// Key is the stable correlation key of this spec.
func (s PkgManagerSpec) Key() string {
	v := s.Version
	if v == "" {
		v = s.Requested
	}
	if v == "" {
		return s.Name
	}
	return s.Name + "@" + v
}

func (s PkgManagerSpec) String() string {
	if s.IsSystem {
		return s.Key() + " (system)"
	}
	return s.Key()
}
