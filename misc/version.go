// Package misc keeps build time identification of the program.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X cssmin/misc.version=... -X cssmin/misc.gitHash=..."
var (
	appName = "cssmin"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

// GetVersion returns version set at build time or module version when
// program was installed with "go install".
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// GetGitHash returns commit program was built from, "unknown" when it could
// not be determined.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
