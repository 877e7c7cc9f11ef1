// Package version holds build-time version information, injected through
// -ldflags at release time.
package version

var (
	// Version is the semantic version of this build.
	Version = "dev"
	// GitCommit is the commit the build was produced from.
	GitCommit = "unknown"
)
