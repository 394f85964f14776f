// Package version carries build-time identification for the service.
package version

// Populated at build time via -ldflags.
var (
	// Version is the semantic version of the service.
	Version = "0.1.0"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// GitCommit is the source revision the binary was built from.
	GitCommit = "unknown"
)
