// Package version carries build metadata for the stegoctl binary. The
// variable values are injected at build time via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current release of the client.
const Version = "1.0.0"

var (
	// BuildTime is set during build using ldflags.
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags.
	GitCommit = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// String renders the metadata as a single human-readable line.
func (i Info) String() string {
	return fmt.Sprintf("stegoctl %s (%s, built %s, %s %s/%s)",
		i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.OS, i.Architecture)
}
