package buildconfig

import (
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Harshitk-cp/lorekeeper/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
)

// Info describes the running lorekeeper build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

func Version() string {
	return version
}

// Commit returns the ldflags commit, falling back to the VCS revision the
// Go toolchain stamps into the binary.
func Commit() string {
	return Get().Commit
}

func Get() Info {
	info := Info{Version: version, Commit: commit, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromVCS(&info, bi.Settings)
	}
	return info
}

func fillFromVCS(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// UserAgent identifies lorekeeper to upstream LLM providers.
func UserAgent() string {
	return "lorekeeper/" + version
}
