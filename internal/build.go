package internal

import (
	"runtime/debug"
	"time"
)

// Build information read from the VCS settings embedded by the Go toolchain.
var (
	BuildRevision      = "unknown"
	BuildRevisionTime  = time.Time{}
	BuildLocalModified = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	readSettings(info.Settings)
}

func readSettings(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			BuildRevision = setting.Value
		case "vcs.time":
			if setting.Value == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err != nil {
				continue
			}
			BuildRevisionTime = t
		case "vcs.modified":
			BuildLocalModified = setting.Value
		}
	}
}

// Version identifies the running build. It's reported by the health
// endpoint and recorded next to every applied migration.
func Version() string {
	if BuildLocalModified == "true" {
		return BuildRevision + "-modified"
	}
	return BuildRevision
}
