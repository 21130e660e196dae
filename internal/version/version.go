package version

import (
	"fmt"
	"runtime"
	"time"
)

// Overridden at build time with -ldflags "-X github.com/MrSnakeDoc/shelf/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().Format(time.RFC3339)
	GoVersion = runtime.Version()
)

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("shelf %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
