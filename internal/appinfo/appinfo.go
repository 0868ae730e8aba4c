// Package appinfo reports build information about the running binary
package appinfo

import (
	"os"
	"runtime/debug"
)

const unknownVersion = "0.0.0-unknown"

// Version can be set at build time with -ldflags "-X sidequest/internal/appinfo.Version=..."
var Version = ""

// GetVersion returns the application version
// It checks for the following in order:
// 1. the linker-provided Version
// 2. APP_VERSION environment variable
// 3. module version or VCS revision from the build info
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return versionFromBuildInfo(debug.ReadBuildInfo)
}

func versionFromBuildInfo(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok || info == nil {
		return unknownVersion
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}
