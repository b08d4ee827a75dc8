package version

import "fmt"

// Build metadata, overridden through -ldflags at release time.
var (
	// Version is the semantic version of this hveto build.
	Version = "0.1.0"
	// Commit is the short git revision the binary was built from.
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version together with commit and build time, the form
// printed by the `hveto version` subcommand.
func Full() string {
	return fmt.Sprintf("hveto %s (commit %s, built %s)", Version, Commit, BuildTime)
}
