// Package buildinfo carries the version stamped into a coinstack build.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/coinstack/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/coinstack/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/coinstack/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build information as served by the HTTP API.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
}

// String returns the formatted build information.
func String() string {
	i := Get()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s", i.Version, i.Commit, i.Date, i.Go)
}

// Template returns the version template for cobra.
func Template() string {
	return "{{.Name}} " + String() + "\n"
}
