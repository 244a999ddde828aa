package definition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CurrentFormatVersion is written by exporters and assumed when a document
// omits format_version.
const CurrentFormatVersion = "1.0.0"

// SupportedFormatVersions is the semver constraint documents must satisfy.
const SupportedFormatVersions = "^1"

// ErrUnsupportedFormat reports a format_version outside SupportedFormatVersions.
var ErrUnsupportedFormat = errors.New("unsupported definition format version")

var supportedConstraint = mustConstraint(SupportedFormatVersions)

func mustConstraint(raw string) *semver.Constraints {
	c, err := semver.NewConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckFormatVersion validates a document's format_version. An empty version
// is treated as CurrentFormatVersion.
func CheckFormatVersion(version string) error {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return nil
	}
	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return fmt.Errorf("definition: format_version %q: %w", version, ErrUnsupportedFormat)
	}
	if !supportedConstraint.Check(v) {
		return fmt.Errorf("definition: format_version %s does not satisfy %s: %w", v, SupportedFormatVersions, ErrUnsupportedFormat)
	}
	return nil
}
