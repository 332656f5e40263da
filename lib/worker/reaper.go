// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"log/slog"
	"runtime"
	"sync"
)

// Reaper runs cleanup actions for owners that have become unreachable.
// Registrations form a doubly linked list so Shutdown can run every
// remaining action even though none of their owners was collected.
type Reaper struct {
	logger        *slog.Logger
	notifications *queue[*Registration]

	mu   sync.Mutex
	tail *Registration
	shut bool

	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
}

// Registration pairs a weakly held owner with its cleanup action.
type Registration struct {
	reaper   *Reaper
	action   func()
	previous *Registration
	next     *Registration
	reaped   bool
	cleanup  runtime.Cleanup
}

// NewReaper starts the reaper goroutine. A nil logger selects
// slog.Default().
func NewReaper(logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	reaper := &Reaper{
		logger:        logger,
		notifications: newQueue[*Registration](),
		stop:          make(chan struct{}),
		exited:        make(chan struct{}),
	}
	go reaper.run()
	return reaper
}

// Watch registers action to run once after owner becomes unreachable.
// action must not refer to owner, or owner is never collected. After
// Shutdown, Watch runs action immediately.
func Watch[T any](r *Reaper, owner *T, action func()) *Registration {
	registration := &Registration{reaper: r, action: action}

	r.mu.Lock()
	if r.shut {
		registration.reaped = true
		r.mu.Unlock()
		r.invoke(registration)
		return registration
	}
	registration.previous = r.tail
	if r.tail != nil {
		r.tail.next = registration
	}
	r.tail = registration
	registration.cleanup = runtime.AddCleanup(owner, r.notify, registration)
	r.mu.Unlock()

	// The owner must outlive the link above, or a notification could
	// arrive for a registration that is not yet in the list.
	runtime.KeepAlive(owner)
	return registration
}

// notify runs on the runtime's cleanup goroutine and must not block.
func (r *Reaper) notify(registration *Registration) {
	r.notifications.push(registration)
}

func (r *Reaper) run() {
	defer close(r.exited)
	for {
		registration, ok := r.notifications.take(r.stop)
		if !ok {
			break
		}
		r.mu.Lock()
		claimed := r.claim(registration)
		r.mu.Unlock()
		if claimed {
			r.invoke(registration)
		}
	}
	r.reapAll()
}

// claim unlinks a registration and marks it reaped. It reports false
// when the registration was already reaped or cancelled. Callers hold
// r.mu.
func (r *Reaper) claim(registration *Registration) bool {
	if registration.reaped {
		return false
	}
	registration.reaped = true
	if registration.next == nil {
		r.tail = registration.previous
	} else {
		registration.next.previous = registration.previous
	}
	if registration.previous != nil {
		registration.previous.next = registration.next
	}
	registration.previous = nil
	registration.next = nil
	return true
}

// reapAll walks the list from the tail and runs every remaining action.
func (r *Reaper) reapAll() {
	r.mu.Lock()
	r.shut = true
	var remaining []*Registration
	for registration := r.tail; registration != nil; registration = registration.previous {
		registration.reaped = true
		registration.cleanup.Stop()
		remaining = append(remaining, registration)
	}
	r.tail = nil
	r.mu.Unlock()

	for _, registration := range remaining {
		r.invoke(registration)
	}
}

// invoke runs one action. A panicking action is logged and does not
// stop the reaper.
func (r *Reaper) invoke(registration *Registration) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("reaper action panicked", "panic", recovered)
		}
	}()
	registration.action()
}

// Shutdown stops the reaper goroutine after running every action still
// registered, newest first. It waits for the actions to finish and is
// idempotent.
func (r *Reaper) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.exited
}

// Cancel removes the registration without running its action. It
// reports false when the action already ran or was cancelled.
func (g *Registration) Cancel() bool {
	r := g.reaper
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.claim(g) {
		return false
	}
	g.cleanup.Stop()
	return true
}

// Reaped reports whether the action has been claimed to run, or the
// registration was cancelled.
func (g *Registration) Reaped() bool {
	g.reaper.mu.Lock()
	defer g.reaper.mu.Unlock()
	return g.reaped
}
