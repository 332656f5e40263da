// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package launch

import (
	"fmt"

	"github.com/vestige-java/vestige.core/lib/config"
	"github.com/vestige-java/vestige.core/lib/container"
)

// secureArchive opens the snapshot at once, so the bytes resolved
// later are the bytes present when the graph was assembled.
func (a *assembly) secureArchive(path string, options container.ArchiveOptions) (container.Container, error) {
	mode := container.SecureLock
	switch a.cfg.SecureMode {
	case config.SecureModeLock, "":
	case config.SecureModePrivateMap:
		mode = container.SecurePrivateMap
	default:
		return nil, fmt.Errorf("unknown secure_mode %q", a.cfg.SecureMode)
	}

	file, err := container.OpenSecureFile(path, mode)
	if err != nil {
		return nil, err
	}
	a.snapshots = append(a.snapshots, file)
	a.logger.Debug("secure snapshot opened", "path", path, "mode", mode.String(), "size", file.Size())
	return container.NewSecureArchive(file, options), nil
}
