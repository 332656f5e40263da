// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import "strings"

// CodeUnitSuffix is appended to the slash-separated form of a code
// unit's name to obtain its entry name inside a container.
const CodeUnitSuffix = ".class"

// PackageOfCodeUnit returns the dotted package of a dotted code unit
// name, or "" when the name has no package component.
func PackageOfCodeUnit(name string) string {
	index := strings.LastIndexByte(name, '.')
	if index < 0 {
		return ""
	}
	return name[:index]
}

// PackageOfResource returns the dotted package of a slash-separated
// entry name, or "" for entries at the container root.
func PackageOfResource(name string) string {
	index := strings.LastIndexByte(name, '/')
	if index < 0 {
		return ""
	}
	return strings.ReplaceAll(name[:index], "/", ".")
}

// EntryNameOfCodeUnit converts "a.b.Widget" to "a/b/Widget.class".
func EntryNameOfCodeUnit(name string) string {
	return strings.ReplaceAll(name, ".", "/") + CodeUnitSuffix
}

// IsCodeUnitEntry reports whether an entry name holds a code unit.
func IsCodeUnitEntry(name string) bool {
	return strings.HasSuffix(name, CodeUnitSuffix)
}

// PackageDirectory converts a dotted package name to the directory
// prefix used for per-package manifest sections: "a.b" -> "a/b/".
func PackageDirectory(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/") + "/"
}
