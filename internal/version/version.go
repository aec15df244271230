// Package version exposes the build information of the smoker binary.
package version

import (
	"runtime/debug"
)

// Info contains build information supplied during compile time.
type Info struct {
	*debug.BuildInfo
	ApplicationVersion string `json:"version"`
}

// applicationVersion gets filled by a linker argument.
var applicationVersion string

// Get version related embedded information. The build info is empty for
// binaries built without module support.
func Get() Info {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		buildInfo = &debug.BuildInfo{}
	}

	v := applicationVersion
	if v == "" && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		v = buildInfo.Main.Version
	}

	return Info{BuildInfo: buildInfo, ApplicationVersion: v}
}
