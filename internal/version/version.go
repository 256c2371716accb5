package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// String renders the build information; an unset Go version falls back to
// the running toolchain.
func String() string {
	goVersion := GoVersion
	if goVersion == "" || goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	return fmt.Sprintf("iliassync - scheduled ILIAS download and cloud backup\nVersion: %s\nBuild Time: %s\nGit Commit: %s\nGo Version: %s",
		Version, BuildTime, GitCommit, goVersion)
}
