// SPDX-License-Identifier: MIT

// Package version carries build identification, populated via ldflags.
package version

import "fmt"

var (
	// Version is the agent version. Populated by the build system (ldflags).
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the full build identification line.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
