package mammoth

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/vk/mammoth/pkg/diagnostics"
)

const (
	// Version is the version of this SDK. Modules built against it should
	// return it from MammothVersion.
	Version = "0.1.0"
	// Compatibility is the range of module versions the host accepts.
	Compatibility = "~0.1.0"
)

// CheckVersion reports a *diagnostics.VersionError when found does not
// parse or does not satisfy required.
func CheckVersion(found, required string) error {
	constraint, err := semver.NewConstraint(required)
	if err != nil {
		return fmt.Errorf("invalid compatibility requirement %q: %w", required, err)
	}
	v, err := semver.NewVersion(found)
	if err != nil || !constraint.Check(v) {
		return &diagnostics.VersionError{Found: found, Required: required}
	}
	return nil
}
