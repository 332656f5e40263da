// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import "sync"

// queue is an unbounded FIFO with any number of producers and a single
// consumer. Producers never block beyond the lock.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

func (q *queue[T]) push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// take returns the oldest item, blocking while the queue is empty.
// Interruption is checked before every dequeue, so once stop is
// closed no further item is returned.
func (q *queue[T]) take(stop <-chan struct{}) (T, bool) {
	var zero T
	for {
		select {
		case <-stop:
			return zero, false
		default:
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-stop:
			return zero, false
		case <-q.notify:
		}
	}
}

// drain removes and returns every queued item.
func (q *queue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// len returns the number of queued items.
func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
