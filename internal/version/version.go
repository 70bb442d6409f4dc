// Package version holds the build version of the bridge.
//
// The same string is printed by the CLIs and served verbatim (UTF-8, no
// trailing NUL) by the bridge's GET /version resource, so it is resolved once
// at start-up and never changes for the lifetime of the process.
package version

import (
	"fmt"
	"runtime/debug"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/uartbridge/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/uartbridge/internal/version.Commit=abc123"
//
// If not set, they are filled from the module build info, and finally fall
// back to a fixed development version.
var (
	// Version is the semantic version of the bridge
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

// DevVersion is used when neither ldflags nor build info provide a version.
const DevVersion = "0.0.0-dev"

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		resolve(info)
	}
	if Version == "" {
		Version = DevVersion
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// resolve fills Version and Commit from build info without overwriting
// values injected through ldflags.
func resolve(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "" {
		return
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		revision += "-dirty"
	}
	Commit = revision
}

// Full returns the version together with the commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
