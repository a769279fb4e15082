// Package version reports the build's version and commit.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/netsetup/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/netsetup/internal/version.Commit=abc123"
//
// Unset values come from the module build info, then fall back to a dev
// version and "unknown".
var (
	Version = ""
	Commit  = ""
)

const shortCommit = 7

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(info)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills unset values from a `go install` module version and
// the VCS stamp.
func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortCommit {
			rev = rev[:shortCommit]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); Version == "" && err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

// Full returns the version line a binary prints, e.g.
// "netsetup-cfg v1.2.3 (commit: abc1234)".
func Full(binary string) string {
	return fmt.Sprintf("%s %s (commit: %s)", binary, Version, Commit)
}
