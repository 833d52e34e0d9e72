// Package misc keeps program identity: name, version and source revision.
package misc

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X docgen/misc.version=... -X docgen/misc.gitHash=..."
var (
	version = "dev"
	gitHash = ""
)

const appName = "docgen"

var buildRevision = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) > 0 {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
})

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns revision program was built from, either injected at link
// time or taken from embedded build information.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	return buildRevision()
}
