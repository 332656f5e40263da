// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package handle

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Scheme is the reserved URL scheme of handle strings.
const Scheme = "vrt"

// ErrInvalidHandle is matched by every error this package returns for
// a handle that cannot be resolved, malformed or stale.
var ErrInvalidHandle = errors.New("invalid resource handle")

// Address is the decoded form of a handle string.
type Address struct {
	Slot      int
	Container int
	Name      string
}

// pathPattern matches the scheme-specific part of a handle.
var pathPattern = regexp.MustCompile(`^/(\d+)/(\d+)!/(.*)$`)

// String returns the handle string for a.
func (a Address) String() string {
	return Format(a)
}

// Format encodes a as a handle string.
func Format(a Address) string {
	segments := strings.Split(a.Name, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s:/%d/%d!/%s", Scheme, a.Slot, a.Container, strings.Join(segments, "/"))
}

// Parse decodes a handle string.
func Parse(handle string) (Address, error) {
	rest, ok := strings.CutPrefix(handle, Scheme+":")
	if !ok {
		return Address{}, &FormatError{Handle: handle, Reason: "scheme is not " + Scheme}
	}
	if strings.HasPrefix(rest, "//") {
		return Address{}, &FormatError{Handle: handle, Reason: "authority component not permitted"}
	}
	if strings.Contains(rest, "?") {
		return Address{}, &FormatError{Handle: handle, Reason: "query component not permitted"}
	}
	if strings.Contains(rest, "#") {
		return Address{}, &FormatError{Handle: handle, Reason: "fragment component not permitted"}
	}

	match := pathPattern.FindStringSubmatch(rest)
	if match == nil {
		return Address{}, &FormatError{Handle: handle, Reason: "path is not /<slot>/<container>!/<name>"}
	}
	slot, err := strconv.Atoi(match[1])
	if err != nil {
		return Address{}, &FormatError{Handle: handle, Reason: "slot out of range"}
	}
	container, err := strconv.Atoi(match[2])
	if err != nil {
		return Address{}, &FormatError{Handle: handle, Reason: "container index out of range"}
	}
	name, err := url.PathUnescape(match[3])
	if err != nil {
		return Address{}, &FormatError{Handle: handle, Reason: "bad escape in entry name"}
	}
	return Address{Slot: slot, Container: container, Name: name}, nil
}

// FormatError reports a malformed handle string.
type FormatError struct {
	Handle string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed resource handle %q: %s", e.Handle, e.Reason)
}

// Is matches ErrInvalidHandle.
func (e *FormatError) Is(target error) bool { return target == ErrInvalidHandle }

// InvalidHandleError reports a well-formed handle that no longer
// resolves: its referent was collected, or the container or entry it
// names is gone.
type InvalidHandleError struct {
	Handle string
	Reason string
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("resource handle %s: %s", e.Handle, e.Reason)
}

// Is matches ErrInvalidHandle.
func (e *InvalidHandleError) Is(target error) bool { return target == ErrInvalidHandle }
