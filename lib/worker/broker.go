// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/pprof"
	"slices"
	"sync"

	"github.com/vestige-java/vestige.core/lib/process"
)

// Profiler label keys set on broker and worker goroutines.
const (
	LabelBroker = "vestige.broker"
	LabelWorker = "vestige.worker"
)

// fatal escalates infrastructure failures. Tests replace it.
var fatal = process.Fatal

// BrokerOptions configures a Broker.
type BrokerOptions struct {
	// Name is the broker's profiler label value and log name. Empty
	// selects "vestige-broker".
	Name string

	// Labels are extra profiler labels every worker inherits.
	Labels map[string]string

	// Reaper, when set, stops the broker goroutine once the Broker is
	// unreachable, and interrupts each Worker once it is unreachable.
	Reaper *Reaper

	// Logger receives broker lifecycle events. Nil selects
	// slog.Default().
	Logger *slog.Logger
}

// Broker serializes the creation of worker goroutines through one
// goroutine. Broker is safe for concurrent use.
type Broker struct {
	core         *brokerCore
	registration *Registration
}

// brokerCore is everything the broker goroutine touches. It never
// refers back to the Broker, so the Broker can become unreachable while
// the goroutine runs.
type brokerCore struct {
	name     string
	logger   *slog.Logger
	reaper   *Reaper
	requests *queue[*creation]

	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}

	nonDaemon sync.WaitGroup
}

// creation is one request to start a worker goroutine.
type creation struct {
	worker  *workerCore
	started chan error
}

// NewBroker starts the broker goroutine.
func NewBroker(options BrokerOptions) *Broker {
	name := options.Name
	if name == "" {
		name = "vestige-broker"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	core := &brokerCore{
		name:     name,
		logger:   logger.With("broker", name),
		reaper:   options.Reaper,
		requests: newQueue[*creation](),
		stop:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	pairs := []string{LabelBroker, name}
	for _, key := range slices.Sorted(maps.Keys(options.Labels)) {
		pairs = append(pairs, key, options.Labels[key])
	}
	go pprof.Do(context.Background(), pprof.Labels(pairs...), core.run)

	broker := &Broker{core: core}
	if options.Reaper != nil {
		broker.registration = Watch(options.Reaper, broker, core.shutdown)
	}
	return broker
}

func (c *brokerCore) run(ctx context.Context) {
	defer close(c.exited)
	c.logger.Debug("broker started")
	for {
		request, ok := c.requests.take(c.stop)
		if !ok {
			break
		}
		c.start(ctx, request)
	}
	for _, request := range c.requests.drain() {
		request.started <- ErrBrokerClosed
	}
	c.logger.Debug("broker stopped")
}

// start launches a worker goroutine from the broker's context, so the
// worker inherits the broker's profiler labels.
func (c *brokerCore) start(ctx context.Context, request *creation) {
	defer func() {
		if r := recover(); r != nil {
			request.started <- fmt.Errorf("broker %s: starting worker %s: %v", c.name, request.worker.name, r)
		}
	}()
	worker := request.worker
	go pprof.Do(ctx, pprof.Labels(LabelWorker, worker.name), worker.run)
	request.started <- nil
}

func (c *brokerCore) shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// CreateWorker asks the broker to start a worker goroutine and waits
// until it has. maxActions bounds how many tasks the worker runs before
// exiting; zero means no bound. A non-daemon worker is joined by Wait.
func (b *Broker) CreateWorker(name string, daemon bool, maxActions int) (*Worker, error) {
	if maxActions < 0 {
		return nil, fmt.Errorf("worker %s: %w (got %d)", name, ErrInvalidBudget, maxActions)
	}
	select {
	case <-b.core.stop:
		return nil, ErrBrokerClosed
	default:
	}

	core := &workerCore{
		name:       name,
		maxActions: maxActions,
		tasks:      newQueue[func()](),
		interrupt:  make(chan struct{}),
		release:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	request := &creation{worker: core, started: make(chan error, 1)}
	b.core.requests.push(request)

	var err error
	select {
	case err = <-request.started:
	case <-b.core.exited:
		select {
		case err = <-request.started:
		default:
			err = ErrBrokerClosed
		}
	}
	if errors.Is(err, ErrBrokerClosed) {
		return nil, err
	}
	if err != nil {
		fatal(err)
		return nil, err
	}

	// The worker goroutine is parked on release until its daemon
	// status is recorded.
	core.daemon = daemon
	if !daemon {
		core.broker = b.core
		b.core.nonDaemon.Add(1)
	}
	close(core.release)

	worker := &Worker{core: core}
	if b.core.reaper != nil {
		worker.registration = Watch(b.core.reaper, worker, core.Interrupt)
	}
	return worker, nil
}

// Wait blocks until every non-daemon worker has exited, or ctx ends.
func (b *Broker) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		b.core.nonDaemon.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the broker goroutine and waits for it to exit. Pending
// and later CreateWorker calls fail with ErrBrokerClosed. Workers
// already started keep running. Close is idempotent.
func (b *Broker) Close() error {
	b.core.shutdown()
	<-b.core.exited
	if b.registration != nil {
		b.registration.Cancel()
	}
	return nil
}

// Name returns the broker's name.
func (b *Broker) Name() string { return b.core.name }
