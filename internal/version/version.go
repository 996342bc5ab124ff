// Package version reports which firestore-import build is running. Release
// builds set the variables below through ldflags; `go install` builds fall
// back to the module and VCS data the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/HerbHall/firestore-import/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the --version line.
func Info() string {
	v, commit := resolve()
	return fmt.Sprintf("firestore-import %s (commit: %s, built: %s, go: %s)",
		v, commit, BuildDate, runtime.Version())
}

// Short returns the version alone, "dev" for unversioned builds.
func Short() string {
	v, _ := resolve()
	return v
}

// Fields returns the build as zap-friendly key/value pairs.
func Fields() map[string]string {
	v, commit := resolve()
	return map[string]string{
		"version":    v,
		"git_commit": commit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

func resolve() (string, string) {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(bi, Version, GitCommit)
}

// fromBuildInfo fills in whatever ldflags left at its default from bi.
func fromBuildInfo(bi *debug.BuildInfo, version, commit string) (string, string) {
	if bi == nil {
		return version, commit
	}
	if version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	if commit == "unknown" {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				commit = s.Value
			}
		}
	}
	return version, commit
}
