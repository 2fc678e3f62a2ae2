package version

import "strings"

// Set at build time via -ldflags.
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

// Resolve returns the version string, appending the short commit hash for
// builds that are not exact releases.
func Resolve() string {
	base := strings.TrimSpace(Version)
	if base == "" {
		base = "0.0.0"
	}

	commit := strings.TrimSpace(Commit)
	if commit == "" || commit == "unknown" {
		return base
	}

	if len(commit) > 7 {
		commit = commit[:7]
	}
	return base + "+" + commit
}
