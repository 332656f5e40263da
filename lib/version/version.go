// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags -X. Empty values fall back to the VCS stamp the go
// command embeds in the binary.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	GitDirty  = ""
	BuildTime = ""
)

const unknown = "unknown"

// Build describes the running binary.
type Build struct {
	Version  string
	Commit   string
	Dirty    bool
	Time     string
	Go       string
	Platform string
}

// Current assembles the Build for this binary.
func Current() Build {
	build := Build{
		Version:  Version,
		Commit:   GitCommit,
		Dirty:    GitDirty == "true",
		Time:     BuildTime,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		build.applyStamp(info.Settings)
	}
	if build.Commit == "" {
		build.Commit = unknown
	}
	if build.Time == "" {
		build.Time = unknown
	}
	return build
}

// applyStamp fills fields left empty by -ldflags from vcs.* settings.
func (b *Build) applyStamp(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if b.Time == "" {
				b.Time = setting.Value
			}
		case "vcs.modified":
			if GitDirty == "" {
				b.Dirty = setting.Value == "true"
			}
		}
	}
}

func shortRevision(revision string) string {
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}

// String formats "0.1.0-dev (abc1234-dirty, 2026-02-10T...)".
func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.Time)
}

// Print writes the --version output for binary: the build on one line,
// then the toolchain and platform.
func Print(w io.Writer, binary string) {
	build := Current()
	fmt.Fprintf(w, "%s %s\n  go: %s\n  platform: %s\n", binary, build, build.Go, build.Platform)
}
