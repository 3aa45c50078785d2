// Package version holds build information injected via ldflags.
package version

// Example: go build -ldflags "-X agentcore/pkg/version.Version=v0.3.0".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by -version.
func String() string {
	return "agentcore " + Version + " (commit " + Commit + ", built " + Date + ")"
}
