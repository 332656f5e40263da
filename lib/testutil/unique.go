// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this when tests need names
// that stay distinct across parallel tests, such as worker or node
// names that end up in logs and profiler labels.
//
//	name := testutil.UniqueID("worker")  // "worker-1", "worker-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
