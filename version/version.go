// Package version reports which build of leebee is running.
package version

import "runtime/debug"

// Version can be set at build time:
//
//	go build -ldflags "-X github.com/minileebee/leebee/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision of the build, suffixed with -dirty if the
// working tree had local modifications. Empty if unknown.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return vcsHash(info.Settings)
}()

// module is the module version recorded by go install, e.g. v0.3.1.
var module = func() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return ""
}()

func vcsHash(settings []debug.BuildSetting) string {
	var revision string
	var modified bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}

// String returns the most specific version known: the one set at build time,
// the module version, the VCS hash, or "devel".
func String() string {
	for _, v := range []string{Version, module, Hash} {
		if v != "" {
			return v
		}
	}
	return "devel"
}
