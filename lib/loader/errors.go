// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports that a name could not be resolved. It carries
// nothing that tells an encapsulation denial apart from absence.
type NotFoundError struct {
	Name string
	Node string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in %s", e.Name, e.Node)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SealViolationError reports a code unit whose package conflicts with
// the sealing identity recorded for it.
type SealViolationError struct {
	Package string
	Reason  string
}

func (e *SealViolationError) Error() string {
	return fmt.Sprintf("sealing violation: package %s %s", e.Package, e.Reason)
}
