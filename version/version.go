// Package version reports how the annogen binary was built, including the
// C++ grammar it parses headers with.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// GrammarModule is the module providing the C++ grammar.
const GrammarModule = "github.com/tree-sitter/tree-sitter-cpp"

// Set at build time via ldflags.
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	// Version is the release tag, "dev" for untagged builds.
	Version = "dev"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash" yaml:"commit_hash"`
	BuildTime  string `json:"build_time" yaml:"build_time"`
	Version    string `json:"version" yaml:"version"`
	Grammar    string `json:"grammar" yaml:"grammar"`
	GoVersion  string `json:"go_version" yaml:"go_version"`
	Platform   string `json:"platform" yaml:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		Grammar:    grammarVersion(debug.ReadBuildInfo()),
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// grammarVersion finds the grammar module among the build dependencies.
// Test binaries and builds without module info report "unknown".
func grammarVersion(bi *debug.BuildInfo, ok bool) string {
	if !ok || bi == nil {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path != GrammarModule {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		return dep.Version
	}
	return "unknown"
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("annogen %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("annogen dev (commit %s, built %s)", i.CommitHash, i.BuildTime)
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
