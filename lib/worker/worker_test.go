// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"runtime"
	"runtime/pprof"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/vestige-java/vestige.core/lib/testutil"
)

const testTimeout = 5 * time.Second

func newBroker(t *testing.T, options BrokerOptions) *Broker {
	t.Helper()
	broker := NewBroker(options)
	t.Cleanup(func() { broker.Close() })
	return broker
}

func createWorker(t *testing.T, broker *Broker, daemon bool, maxActions int) *Worker {
	t.Helper()
	worker, err := broker.CreateWorker(testutil.UniqueID("worker"), daemon, maxActions)
	if err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	t.Cleanup(worker.Interrupt)
	return worker
}

func get[T any](t *testing.T, future *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	value, err := future.Get(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("timed out waiting for task")
	}
	return value, err
}

// recorder appends task indices in execution order.
type recorder struct {
	mu    sync.Mutex
	order []int
}

func (r *recorder) task(index int) func() (int, error) {
	return func() (int, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.order = append(r.order, index)
		return index, nil
	}
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

func TestWorkerBudget(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 3)

	var record recorder
	var futures []*Future[int]
	for index := range 4 {
		futures = append(futures, Submit(worker, record.task(index)))
	}

	for index, future := range futures[:3] {
		value, err := get(t, future)
		if err != nil || value != index {
			t.Errorf("task %d = %d, %v", index, value, err)
		}
	}
	testutil.RequireClosed(t, worker.Done(), testTimeout, "worker exit after budget")
	testutil.RequireNever(t, futures[3].Done(), 50*time.Millisecond, "fourth task")

	if got := record.snapshot(); !slices.Equal(got, []int{0, 1, 2}) {
		t.Errorf("execution order = %v, want [0 1 2]", got)
	}
	if worker.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", worker.Pending())
	}
}

func TestWorkerFIFO(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 0)

	var record recorder
	var last *Future[int]
	want := make([]int, 100)
	for index := range want {
		want[index] = index
		last = Submit(worker, record.task(index))
	}
	get(t, last)
	if got := record.snapshot(); !slices.Equal(got, want) {
		t.Errorf("execution order = %v", got)
	}
}

func TestTasksRunOneAtATime(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 0)

	names := make(chan string, 1)
	release := make(chan struct{})
	first := Submit(worker, func() (int, error) {
		names <- "first"
		<-release
		return 1, nil
	})
	second := Submit(worker, func() (int, error) {
		names <- "second"
		return 2, nil
	})

	if got := testutil.RequireReceive(t, names, testTimeout, "first task start"); got != "first" {
		t.Fatalf("first task to run = %q", got)
	}
	testutil.RequireNever(t, second.Done(), 20*time.Millisecond, "second task while first runs")
	if worker.Pending() != 1 {
		t.Errorf("Pending() = %d while the first task runs, want 1", worker.Pending())
	}

	testutil.RequireSend(t, release, struct{}{}, testTimeout, "releasing first task")
	if got := testutil.RequireReceive(t, names, testTimeout, "second task start"); got != "second" {
		t.Fatalf("second task to run = %q", got)
	}
	for index, future := range []*Future[int]{first, second} {
		if value, err := get(t, future); err != nil || value != index+1 {
			t.Errorf("task %d = %d, %v", index+1, value, err)
		}
	}
}

func TestInterruptAbandonsQueuedTasks(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 0)

	started := make(chan struct{})
	gate := make(chan struct{})
	running := Submit(worker, func() (string, error) {
		close(started)
		<-gate
		return "finished", nil
	})
	queued := []*Future[string]{
		Submit(worker, func() (string, error) { return "second", nil }),
		Submit(worker, func() (string, error) { return "third", nil }),
	}

	testutil.RequireClosed(t, started, testTimeout, "first task start")
	worker.Interrupt()
	close(gate)

	if value, err := get(t, running); err != nil || value != "finished" {
		t.Errorf("running task = %q, %v; want it to complete", value, err)
	}
	testutil.RequireClosed(t, worker.Done(), testTimeout, "worker exit after interrupt")
	for _, future := range queued {
		testutil.RequireNever(t, future.Done(), 20*time.Millisecond, "abandoned task")
	}
	if worker.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", worker.Pending())
	}
}

func TestTaskFailures(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 0)

	sentinel := errors.New("task failed")
	if _, err := get(t, Submit(worker, func() (int, error) { return 0, sentinel })); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want %v", err, sentinel)
	}

	_, err := get(t, Submit(worker, func() (int, error) { panic("boom") }))
	var panicErr *TaskPanicError
	if !errors.As(err, &panicErr) || panicErr.Value != "boom" || len(panicErr.Stack) == 0 {
		t.Errorf("error = %v, want TaskPanicError(boom)", err)
	}

	_, err = get(t, Submit(worker, func() (int, error) { panic(sentinel) }))
	if !errors.Is(err, sentinel) {
		t.Errorf("panic(error) = %v, want it to unwrap to %v", err, sentinel)
	}

	// The worker survives failing tasks.
	if value, err := get(t, Submit(worker, func() (int, error) { return 7, nil })); value != 7 || err != nil {
		t.Errorf("task after failures = %d, %v", value, err)
	}
}

func TestFutureGetHonoursContext(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	worker := createWorker(t, broker, true, 0)
	gate := make(chan struct{})
	future := Submit(worker, func() (int, error) {
		<-gate
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := future.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Get with cancelled context = %v", err)
	}
	close(gate)
	if value, err := get(t, future); value != 1 || err != nil {
		t.Errorf("Get = %d, %v", value, err)
	}
}

func TestCreateWorkerValidation(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	if _, err := broker.CreateWorker("negative", true, -1); !errors.Is(err, ErrInvalidBudget) {
		t.Errorf("negative budget error = %v, want ErrInvalidBudget", err)
	}

	if err := broker.Close(); err != nil {
		t.Fatal(err)
	}
	if err := broker.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := broker.CreateWorker("late", true, 0); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("CreateWorker after Close = %v, want ErrBrokerClosed", err)
	}
}

func TestBrokerWaitJoinsNonDaemonWorkers(t *testing.T) {
	broker := newBroker(t, BrokerOptions{})
	createWorker(t, broker, true, 0) // daemon, never exits on its own
	worker := createWorker(t, broker, false, 1)
	if worker.Daemon() {
		t.Error("Daemon() = true for a non-daemon worker")
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := broker.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait before the task ran = %v, want deadline exceeded", err)
	}

	Submit(worker, func() (struct{}, error) { return struct{}{}, nil })
	ctx, cancelWait := context.WithTimeout(context.Background(), testTimeout)
	defer cancelWait()
	if err := broker.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWorkersInheritBrokerLabels(t *testing.T) {
	broker := newBroker(t, BrokerOptions{Name: "labelled", Labels: map[string]string{"tenant": "alpha"}})
	worker := createWorker(t, broker, true, 0)
	get(t, Submit(worker, func() (int, error) { return 0, nil }))

	labels := worker.core.labels
	for key, want := range map[string]string{LabelBroker: "labelled", "tenant": "alpha", LabelWorker: worker.Name()} {
		if got, ok := pprof.Label(labels, key); !ok || got != want {
			t.Errorf("label %s = %q, %v; want %q", key, got, ok, want)
		}
	}
}

// gcUntil runs the collector until done is closed or the test times
// out.
func gcUntil(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				runtime.GC()
				runtime.Gosched()
			}
		}
	}()
	testutil.RequireClosed(t, done, testTimeout, msg)
}

type owner struct {
	payload [64]byte
}

func TestReaperRunsActionWhenOwnerCollected(t *testing.T) {
	reaper := NewReaper(nil)
	t.Cleanup(reaper.Shutdown)

	fired := make(chan struct{})
	registration := func() *Registration {
		return Watch(reaper, &owner{}, func() { close(fired) })
	}()
	gcUntil(t, fired, "reaper action")
	if !registration.Reaped() {
		t.Error("Reaped() = false after the action ran")
	}
	if registration.Cancel() {
		t.Error("Cancel succeeded after the action ran")
	}
}

func TestReaperShutdownForcesRemaining(t *testing.T) {
	reaper := NewReaper(nil)

	var mu sync.Mutex
	var order []int
	owners := make([]*owner, 4)
	registrations := make([]*Registration, 4)
	for index := range owners {
		owners[index] = &owner{}
		registrations[index] = Watch(reaper, owners[index], func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, index)
		})
	}
	if !registrations[1].Cancel() {
		t.Fatal("Cancel failed on a live registration")
	}
	// A panicking action does not stop the rest.
	Watch(reaper, owners[0], func() { panic("cleanup failed") })

	reaper.Shutdown()
	reaper.Shutdown()

	mu.Lock()
	got := slices.Clone(order)
	mu.Unlock()
	if !slices.Equal(got, []int{3, 2, 0}) {
		t.Errorf("forced order = %v, want [3 2 0]", got)
	}

	ran := make(chan struct{})
	Watch(reaper, &owner{}, func() { close(ran) })
	testutil.RequireClosed(t, ran, testTimeout, "watch after shutdown")
	runtime.KeepAlive(owners)
}

func TestBrokerAndWorkerReaped(t *testing.T) {
	reaper := NewReaper(nil)
	t.Cleanup(reaper.Shutdown)

	brokerCore, workerCore := func() (*brokerCore, *workerCore) {
		broker := NewBroker(BrokerOptions{Reaper: reaper})
		worker, err := broker.CreateWorker("transient", true, 0)
		if err != nil {
			t.Fatalf("CreateWorker: %v", err)
		}
		return broker.core, worker.core
	}()

	gcUntil(t, workerCore.done, "worker goroutine exit")
	gcUntil(t, brokerCore.exited, "broker goroutine exit")
}

func TestShutdownStopsLiveBrokers(t *testing.T) {
	reaper := NewReaper(nil)
	broker := NewBroker(BrokerOptions{Reaper: reaper})
	worker, err := broker.CreateWorker("held", true, 0)
	if err != nil {
		t.Fatal(err)
	}

	reaper.Shutdown()
	testutil.RequireClosed(t, worker.Done(), testTimeout, "worker exit on shutdown")
	testutil.RequireClosed(t, broker.core.exited, testTimeout, "broker exit on shutdown")
	if _, err := broker.CreateWorker("after", true, 0); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("CreateWorker after shutdown = %v, want ErrBrokerClosed", err)
	}
}
