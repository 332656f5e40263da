// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !darwin && !linux

package launch

import (
	"fmt"
	"runtime"

	"github.com/vestige-java/vestige.core/lib/container"
)

func (a *assembly) secureArchive(path string, options container.ArchiveOptions) (container.Container, error) {
	return nil, fmt.Errorf("secure containers are not supported on %s", runtime.GOOS)
}
