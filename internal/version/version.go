// Package version carries build metadata stamped in via ldflags.
package version

var (
	// Version is the release tag of this creditd build.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "unknown"
	// BuildDate records when the binary was built.
	BuildDate = "unknown"
)
