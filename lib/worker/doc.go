// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs tasks on long-lived worker goroutines that are
// all born from one controlled context, and releases them when their
// owners become unreachable.
//
// A [Broker] owns a single goroutine running under a fixed set of
// profiler labels. Creating a [Worker] is itself a request queued to
// that goroutine, so every worker goroutine starts from the broker's
// label set regardless of which goroutine asked for it. The caller of
// [Broker.CreateWorker] blocks until the broker has started the
// goroutine, records whether the worker is a daemon, and then releases
// it into its task loop.
//
// Each worker drains its own FIFO queue. [Submit] appends a task and
// returns a [Future]. A worker created with a positive action budget
// runs that many tasks and exits; tasks submitted after that are
// accepted and never run, and their futures never complete.
// [Worker.Interrupt] is the only cancellation signal: a task already
// dequeued runs to completion, and tasks still queued are abandoned
// without being reported as failed.
//
// A [Reaper] runs a cleanup action exactly once when a watched owner
// becomes unreachable ([Watch] is built on runtime.AddCleanup), or for
// every still-registered owner when [Reaper.Shutdown] is called.
// Brokers and workers created with a reaper register themselves, so
// dropping a Broker or Worker stops its goroutine.
//
// A task's own error or panic reaches the submitter through its Future.
// Failures of the broker machinery itself are escalated through
// process.Fatal.
package worker
