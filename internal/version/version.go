// Package version holds build metadata stamped in with -ldflags.
package version

import "fmt"

var (
	// Version is the released version of covdash.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the build metadata on one line for logs and the version command.
func String() string {
	return fmt.Sprintf("covdash %s (%s, built %s)", Version, GitSHA, BuildTime)
}
