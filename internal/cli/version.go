// Package cli carries version metadata shared by the command-line tools.
package cli

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is the swarm runtime version.
const Version = "0.3.0"

// CheckRequirement verifies a script's requires pragma against the runtime
// version. An empty constraint always passes.
func CheckRequirement(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid requires constraint %q: %w", constraint, err)
	}
	v := semver.MustParse(Version)
	if !c.Check(v) {
		return fmt.Errorf("script requires runtime %q, this is %s", constraint, Version)
	}
	return nil
}
