// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokerClosed is returned by CreateWorker after Broker.Close.
	ErrBrokerClosed = errors.New("broker closed")

	// ErrInvalidBudget is returned by CreateWorker for a negative
	// action budget.
	ErrInvalidBudget = errors.New("action budget must not be negative")
)

// TaskPanicError carries a panic raised by a task to its Future.
type TaskPanicError struct {
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *TaskPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
