// Package version reports the build of the converter
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set at build time:
//
//	-ldflags "-X 'cachetrace/internal/core/version.version=v0.1.0'
//	          -X 'cachetrace/internal/core/version.commit=abcd'
//	          -X 'cachetrace/internal/core/version.date=2026-10-01'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information
func Info() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, Date: date}
}

// String renders the build for --version
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}
