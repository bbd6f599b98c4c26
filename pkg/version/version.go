// Package version holds build metadata of the schemaevo binary.
package version

import (
	"runtime/debug"
)

// Set at link time with -ldflags "-X github.com/Sumatoshi-tech/schemaevo/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// InitBinaryVersion fills unset metadata from the module build info that the
// Go toolchain embeds in the binary.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String returns "version (commit: ..., built: ...)".
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
