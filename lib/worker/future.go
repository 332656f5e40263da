// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"runtime/debug"
)

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit queues task on w and returns its future. Submission never
// blocks. A task submitted to a worker that has exited is accepted and
// never runs.
func Submit[T any](w *Worker, task func() (T, error)) *Future[T] {
	future := &Future[T]{done: make(chan struct{})}
	w.core.tasks.push(func() {
		defer close(future.done)
		defer func() {
			if r := recover(); r != nil {
				future.err = &TaskPanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		future.value, future.err = task()
	})
	return future
}

// Get waits for the task and returns its result. It returns ctx.Err()
// if ctx ends first; the task is not affected.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the task has run.
func (f *Future[T]) Done() <-chan struct{} { return f.done }
