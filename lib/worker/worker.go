// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"sync"
)

// Worker is a goroutine draining its own task queue in FIFO order.
type Worker struct {
	core         *workerCore
	registration *Registration
}

// workerCore is the state shared with the worker goroutine.
type workerCore struct {
	name       string
	maxActions int
	tasks      *queue[func()]

	interrupt     chan struct{}
	interruptOnce sync.Once
	release       chan struct{}
	done          chan struct{}

	// Written before release is closed.
	daemon bool
	broker *brokerCore

	// labels is the context the goroutine runs under. Written by the
	// worker goroutine before its first task.
	labels context.Context
}

func (w *workerCore) run(ctx context.Context) {
	defer close(w.done)
	<-w.release
	if !w.daemon {
		defer w.broker.nonDaemon.Done()
	}
	w.labels = ctx

	for remaining := w.maxActions; w.maxActions == 0 || remaining > 0; remaining-- {
		task, ok := w.tasks.take(w.interrupt)
		if !ok {
			return
		}
		task()
	}
}

// Interrupt asks the worker to stop. A running task completes; queued
// tasks are abandoned.
func (w *workerCore) Interrupt() {
	w.interruptOnce.Do(func() { close(w.interrupt) })
}

// Name returns the worker's name.
func (w *Worker) Name() string { return w.core.name }

// Daemon reports whether Broker.Wait ignores this worker.
func (w *Worker) Daemon() bool { return w.core.daemon }

// Interrupt asks the worker to stop. The task it is running, if any,
// completes; tasks still queued never run and their futures never
// complete.
func (w *Worker) Interrupt() { w.core.Interrupt() }

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.core.done }

// Pending returns the number of queued tasks not yet started.
func (w *Worker) Pending() int { return w.core.tasks.len() }
